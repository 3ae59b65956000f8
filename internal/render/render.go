package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorTool    = "\033[1;33m" // bold yellow
	colorThink   = "\033[2;35m" // dim magenta for thinking
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	Header   string // first line, e.g. session id and project path
	HitIndex int    // message index in the session to mark, -1 for none
	Width    int    // wrap width (0 = no wrap)
	Query    string // search query for keyword highlighting
	NoColor  bool
}

// highlightKeywords wraps case-insensitive matches of query in bold red.
// Search matches whole substrings, so the query is not split into terms.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	lower := strings.ToLower(query)
	var b strings.Builder
	for {
		idx := strings.Index(strings.ToLower(text), lower)
		if idx < 0 || len(strings.ToLower(text[:idx])) != idx {
			break
		}
		end := idx + len(lower)
		if end > len(text) || !utf8.ValidString(text[idx:end]) {
			break
		}
		b.WriteString(text[:idx])
		b.WriteString(colorBoldRed + text[idx:end] + colorReset)
		text = text[end:]
	}
	b.WriteString(text)
	return b.String()
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// Truncate shortens s to at most width terminal columns.
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func roleStyle(role string) (string, string) {
	switch role {
	case "user":
		return colorUser, "USER"
	case "assistant":
		return colorAssist, "ASST"
	case "tool":
		return colorTool, "TOOL"
	default:
		return colorDim, strings.ToUpper(role)
	}
}

func blockText(b model.Block) (label, text string, dim bool) {
	switch b.Type {
	case model.BlockThinking:
		return "thinking", b.Text, true
	case model.BlockReasoning:
		return "reasoning", b.Text, true
	case model.BlockToolUse:
		return "tool_use " + b.Name, b.Input, false
	case model.BlockFunctionCall:
		return "call " + b.Name, b.Input, false
	case model.BlockToolResult:
		if b.IsError {
			return "tool_result (error)", b.Output, true
		}
		return "tool_result", b.Output, true
	case model.BlockFunctionCallOutput:
		return "output", b.Output, true
	default:
		return "", b.Text, false
	}
}

// Page renders one page of a session and returns the text together with
// the 0-based output line of the hit message header (-1 if not on the page).
func Page(p model.Page, opts Options) (string, int) {
	firstIndex := p.Offset
	var b strings.Builder
	hitLine := -1
	lineCount := 0
	color := func(c string) string {
		if opts.NoColor {
			return ""
		}
		return c
	}
	reset := color(colorReset)
	separator := color(colorDim) + "--------------------------------------------------" + reset

	// helper to track line count; wraps long lines if Width is set
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	if opts.Header != "" {
		writeLine(fmt.Sprintf("%s--- %s ---%s", color(colorDim), opts.Header, reset))
	}
	if len(p.Messages) == 0 {
		writeLine("(no messages on this page)")
		return b.String(), hitLine
	}
	if firstIndex > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages before) ...%s", color(colorDim), firstIndex, reset))
	}

	for i, m := range p.Messages {
		if i > 0 {
			writeLine(separator)
		}
		roleColor, roleLabel := roleStyle(m.Role)
		if firstIndex+i == opts.HitIndex {
			hitLine = lineCount
			writeLine(fmt.Sprintf("%s>> %s > %s <<%s", color(colorHit), roleLabel, m.Timestamp, reset))
		} else {
			writeLine(fmt.Sprintf("%s%s >%s %s%s%s", color(roleColor), roleLabel, reset, color(colorDim), m.Timestamp, reset))
		}

		for _, blk := range m.Content {
			label, text, dim := blockText(blk)
			if label != "" {
				writeLine(fmt.Sprintf("  %s[%s]%s", color(colorThink), label, reset))
			}
			if !opts.NoColor {
				text = highlightKeywords(text, opts.Query)
			}
			if dim && !opts.NoColor {
				text = colorDim + text + colorReset
			}
			for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
				writeLine(tl)
			}
		}
		writeLine("") // blank line after message
	}

	if after := p.Total - firstIndex - len(p.Messages); after > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages after) ...%s", color(colorDim), after, reset))
	}
	return b.String(), hitLine
}
