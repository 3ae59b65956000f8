package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

// linesPerItem is the number of terminal lines each entry occupies.
const linesPerItem = 2

// item is one row of the list: a search hit or, in list mode, a session.
type item struct {
	source      model.Source
	sessionID   string
	filePath    string
	projectPath string
	title       string
	snippet     string
	when        string // RFC 3339
	hit         int    // message index of the match, -1 for a session row
}

func (it item) key() string {
	return it.filePath + ":" + strconv.Itoa(it.hit)
}

func resultItems(results []search.Result) []item {
	items := make([]item, 0, len(results))
	for _, r := range results {
		it := item{
			source:    r.Source,
			sessionID: r.SessionID,
			filePath:  r.FilePath,
			title:     r.FirstPrompt,
			snippet:   r.MatchedText,
			when:      r.Timestamp,
			hit:       r.MessageIndex,
		}
		if it.title == "" {
			it.title = r.ProjectName
		}
		// codex projects are keyed by cwd; claude ids are lossy and the
		// resume path reads the cwd from the file instead
		if r.Source == model.SourceCodex {
			it.projectPath = r.ProjectID
		}
		items = append(items, it)
	}
	return items
}

func sessionItems(sessions []model.Session) []item {
	items := make([]item, 0, len(sessions))
	for _, s := range sessions {
		it := item{
			source:      s.Source,
			sessionID:   s.SessionID,
			filePath:    s.FilePath,
			projectPath: s.ProjectPath,
			title:       s.FirstPrompt,
			hit:         -1,
		}
		if it.projectPath == "" {
			it.projectPath = s.Cwd
		}
		if it.title == "" {
			it.title = s.SessionID
		}
		parts := []string{fmt.Sprintf("%d msgs", s.MessageCount)}
		if !s.Modified.IsZero() {
			it.when = s.Modified.Format(time.RFC3339)
			parts = append(parts, humanize.Time(s.Modified))
		}
		if s.GitBranch != "" {
			parts = append(parts, s.GitBranch)
		}
		it.snippet = strings.Join(parts, " · ")
		items = append(items, it)
	}
	return items
}

// renderList renders the left panel with scrolling.
func (m ui) renderList(width, height int) string {
	if len(m.items) == 0 {
		return styleEmpty.Width(width).Height(height).Render("No results")
	}

	var lines []string
	for i, it := range m.items {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatItem(it, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatItem formats a single entry as two lines:
//
//	line 1: [>] source  MM-DD  title
//	line 2:    snippet (dimmed)
func formatItem(it item, width int, selected bool) []string {
	var src string
	switch it.source {
	case model.SourceClaude:
		src = styleSourceClaude.Render("claude")
	case model.SourceCodex:
		src = styleSourceCodex.Render("codex ")
	default:
		src = string(it.source)
	}

	date := it.when
	if len(date) >= 10 {
		date = date[5:10]
	}

	title := oneLine(it.title)
	titleMax := max(width-2-7-6-2, 0) // prefix + source + date + padding
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "")
	}

	line1 := fmt.Sprintf("%s %s %s", src, date, title)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	snippet := oneLine(it.snippet)
	snippetMax := max(width-4, 0)
	if runewidth.StringWidth(snippet) > snippetMax {
		snippet = runewidth.Truncate(snippet, snippetMax, "")
	}
	line2 := "    " + styleSnippet.Render(snippet)

	return []string{line1, line2}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *ui) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
