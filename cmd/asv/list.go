package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/render"
	"github.com/Zuo-Peng/ai-session-viewer/internal/tui"
)

func projectsCmd(a *app) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			projects, err := eng.Projects(cmd.Context(), src)
			if err != nil {
				return err
			}
			return a.out.Projects(projects)
		},
	}
	sourceFlag(cmd, &source)
	return cmd
}

func sessionsCmd(a *app) *cobra.Command {
	var source string
	var browse bool

	cmd := &cobra.Command{
		Use:   "sessions [project-id]",
		Short: "List the sessions of a project, newest first",
		Long: `Lists the sessions of a project. For claude the project id is the
encoded directory name shown by 'asv projects'; for codex it is the working
directory, and omitting it lists every codex session.

With --browse the list opens in the TUI; typing switches to full-text search.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			var projectID string
			if len(args) == 1 {
				projectID = args[0]
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			if browse {
				return tui.RunList(tui.Config{
					Backend:    eng,
					Source:     src,
					ProjectID:  projectID,
					PageSize:   a.cfg.PageSize,
					MaxResults: a.cfg.MaxResults,
					Out:        a.stdout,
				})
			}
			sessions, err := eng.Sessions(cmd.Context(), src, projectID)
			if err != nil {
				return err
			}
			return a.out.Sessions(sessions)
		},
	}
	sourceFlag(cmd, &source)
	cmd.Flags().BoolVar(&browse, "browse", false, "Browse the sessions in the TUI")
	return cmd
}

func messagesCmd(a *app) *cobra.Command {
	var source, query string
	var pageNum, pageSize, hit int
	var fromEnd bool

	cmd := &cobra.Command{
		Use:   "messages <session-file>",
		Short: "Print one page of a session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = a.cfg.PageSize
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			p, err := eng.Messages(src, args[0], pageNum, pageSize, fromEnd)
			if err != nil {
				return err
			}
			return a.out.Value(p, func() {
				stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				text, _ := render.Page(p, render.Options{
					Header:   fmt.Sprintf("%s %s (page %d, %d messages)", src, stem, p.Page, p.Total),
					HitIndex: hit,
					Width:    termWidth(a.stdout),
					Query:    query,
					NoColor:  !isTerminal(a.stdout),
				})
				fmt.Fprint(a.stdout, text)
			})
		},
	}
	sourceFlag(cmd, &source)
	cmd.Flags().IntVar(&pageNum, "page", 0, "Page number, 0-based")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Messages per page (default from config)")
	cmd.Flags().BoolVar(&fromEnd, "from-end", false, "Count pages from the newest message")
	cmd.Flags().IntVar(&hit, "hit", -1, "Message index to highlight")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	return cmd
}

func statsCmd(a *app) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Token usage summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			summary, err := eng.Stats(cmd.Context(), src)
			if err != nil {
				return err
			}
			return a.out.Stats(src, summary)
		},
	}
	sourceFlag(cmd, &source)
	return cmd
}
