package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
	YAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Table, JSON, YAML:
		return f, nil
	case "":
		return Table, nil
	}
	return "", fmt.Errorf("format %q: %w", s, model.ErrInvalidArgument)
}

// Writer renders command results in one of the supported formats.
type Writer struct {
	w      io.Writer
	format Format
	now    func() time.Time
}

func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format, now: time.Now}
}

func (o *Writer) Format() Format {
	return o.format
}

// Value writes v as JSON or YAML. In table mode it calls table instead.
func (o *Writer) Value(v any, table func()) error {
	switch o.format {
	case JSON:
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(o.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	table()
	return nil
}

// WriteTable prints an aligned table. Widths are measured in terminal
// cells so CJK prompts line up.
func (o *Writer) WriteTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(o.w, strings.TrimRight(b.String(), " "))
	}

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	writeRow(upper)
	for _, row := range rows {
		writeRow(row)
	}
}

func (o *Writer) Projects(projects []model.Project) error {
	return o.Value(projects, func() {
		if len(projects) == 0 {
			fmt.Fprintln(o.w, "No projects found.")
			return
		}
		rows := make([][]string, 0, len(projects))
		for _, p := range projects {
			rows = append(rows, []string{
				p.ShortName,
				strconv.Itoa(p.SessionCount),
				o.ago(p.LastModified),
				dash(p.ModelProvider),
				p.ID,
			})
		}
		o.WriteTable([]string{"name", "sessions", "modified", "provider", "id"}, rows)
	})
}

func (o *Writer) Sessions(sessions []model.Session) error {
	return o.Value(sessions, func() {
		if len(sessions) == 0 {
			fmt.Fprintln(o.w, "No sessions found.")
			return
		}
		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, []string{
				s.SessionID,
				strconv.Itoa(s.MessageCount),
				o.ago(s.Modified),
				dash(s.GitBranch),
				Truncate(oneLine(s.FirstPrompt), 60),
			})
		}
		o.WriteTable([]string{"session", "msgs", "modified", "branch", "first prompt"}, rows)
	})
}

func (o *Writer) Stats(src model.Source, s model.UsageSummary) error {
	return o.Value(s, func() {
		o.PrintSection(string(src) + " usage")
		o.PrintKeyValue("Sessions", humanize.Comma(int64(s.SessionCount)))
		o.PrintKeyValue("Messages", humanize.Comma(int64(s.MessageCount)))
		o.PrintKeyValue("Input tokens", humanize.Comma(int64(s.TotalInputTokens)))
		o.PrintKeyValue("Output tokens", humanize.Comma(int64(s.TotalOutputTokens)))
		o.PrintKeyValue("Total tokens", humanize.Comma(int64(s.TotalTokens)))

		if len(s.TokensByModel) > 0 {
			o.PrintSection("By model")
			models := lo.Keys(s.TokensByModel)
			slices.Sort(models)
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{m, humanize.Comma(int64(s.TokensByModel[m]))})
			}
			o.WriteTable([]string{"model", "tokens"}, rows)
		}

		if len(s.DailyTokens) > 0 {
			o.PrintSection("Daily")
			rows := make([][]string, 0, len(s.DailyTokens))
			for _, d := range s.DailyTokens {
				rows = append(rows, []string{
					d.Date,
					humanize.Comma(int64(d.InputTokens)),
					humanize.Comma(int64(d.OutputTokens)),
					humanize.Comma(int64(d.TotalTokens)),
				})
			}
			o.WriteTable([]string{"date", "input", "output", "total"}, rows)
		}
	})
}

// PrintSection prints a section header.
func (o *Writer) PrintSection(title string) {
	fmt.Fprintf(o.w, "\n%s\n", title)
	fmt.Fprintln(o.w, strings.Repeat("-", runewidth.StringWidth(title)))
}

// PrintKeyValue prints a key-value pair.
func (o *Writer) PrintKeyValue(key, value string) {
	fmt.Fprintf(o.w, "%-20s %s\n", key+":", value)
}

func (o *Writer) ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, o.now(), "ago", "from now")
}

// Truncate shortens s to width terminal cells, ending in "...".
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
