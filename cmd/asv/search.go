package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/engine"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/output"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
	"github.com/Zuo-Peng/ai-session-viewer/internal/tui"
	"github.com/Zuo-Peng/ai-session-viewer/internal/watch"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeSource(src model.Source) string {
	switch src {
	case model.SourceClaude:
		return sColorBlue + string(src) + sColorReset
	case model.SourceCodex:
		return sColorGreen + string(src) + sColorReset
	default:
		return string(src)
	}
}

// colorizeMatch marks every case-insensitive occurrence of query in bold red.
func colorizeMatch(text, query string) string {
	if query == "" {
		return text
	}
	lowerText, lowerQuery := strings.ToLower(text), strings.ToLower(query)
	if len(lowerText) != len(text) {
		return text
	}
	var b strings.Builder
	for {
		idx := strings.Index(lowerText, lowerQuery)
		if idx < 0 {
			break
		}
		end := idx + len(lowerQuery)
		b.WriteString(text[:idx])
		b.WriteString(sColorBoldRed + text[idx:end] + sColorReset)
		text, lowerText = text[end:], lowerText[end:]
	}
	b.WriteString(text)
	return b.String()
}

func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func searchCmd(a *app) *cobra.Command {
	var source, role string
	var limit int
	var live bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Case-insensitive substring search across session logs",
		Long: `Search every session file of a source. On a terminal the results open
in the TUI; otherwise they are printed as TSV for fzf:
  file, message index, timestamp, source, project, role, first prompt, match

Recommended shell function (add to .zshrc):
  asvf() {
    asv search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --preview 'asv messages {1} --hit {2} --query {q} --page-size 10000' \
      --preview-window=right:60%:wrap \
      --bind 'enter:execute(asv resume {1})'
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.MaxResults
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if isTerminal(a.stdout) && a.out.Format() == output.Table {
				return runSearchTUI(cmd.Context(), a, eng, src, args[0], role, limit, live)
			}

			opts := search.Options{Source: src, Query: args[0], MaxResults: limit, Role: role}
			results, err := eng.Search(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.out.Value(results, func() {
				if len(results) == 0 {
					fmt.Fprintln(a.stderr, "No results found.")
					return
				}
				color := isTerminal(a.stdout) || os.Getenv("CLICOLOR_FORCE") != ""
				for _, r := range results {
					printResult(a, r, args[0], color)
				}
			})
		},
	}

	sourceFlag(cmd, &source)
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/assistant/tool)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results (default from config)")
	cmd.Flags().BoolVar(&live, "watch", false, "Refresh TUI results when session files change")

	return cmd
}

// printResult writes one TSV row. The first two fields stay plain for
// fzf's {1} and {2}.
func printResult(a *app, r search.Result, query string, color bool) {
	project := r.ProjectName
	if project == "" {
		project = "-"
	}
	ts, src, match := r.Timestamp, string(r.Source), tsvField(r.MatchedText)
	if ts == "" {
		ts = "-"
	}
	if color {
		ts = sColorDim + ts + sColorReset
		src = colorizeSource(r.Source)
		match = colorizeMatch(match, query)
	}
	fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		r.FilePath,
		strconv.Itoa(r.MessageIndex),
		ts,
		src,
		tsvField(project),
		r.Role,
		tsvField(r.FirstPrompt),
		match,
	)
}

func runSearchTUI(ctx context.Context, a *app, eng *engine.Engine, src model.Source, query, role string, limit int, live bool) error {
	cfg := tui.Config{
		Backend:    eng,
		Source:     src,
		Query:      query,
		Role:       role,
		MaxResults: limit,
		PageSize:   a.cfg.PageSize,
		Out:        a.stdout,
	}
	if live {
		n, err := watch.New(a.cfg.ClaudeRoot, a.cfg.CodexRoot)
		if err != nil {
			return err
		}
		defer n.Close()
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		go n.Run(ctx)
		cfg.Changes = n.Batches()
	}
	return tui.Run(cfg)
}
