package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/open"
)

func resumeCmd(a *app) *cobra.Command {
	var source, dir string
	var copyCmd bool

	cmd := &cobra.Command{
		Use:   "resume <session-file>",
		Short: "Print the command that resumes a session, and copy it",
		Long: `Prints the shell command that resumes a session in its CLI and copies it
to the clipboard. For claude the session is first added to the project's
sessions-index.json when it is missing there, since 'claude --resume' only
offers indexed sessions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			rc, err := open.Resume(src, args[0], dir, copyCmd)
			if err != nil {
				return err
			}
			return a.out.Value(rc, func() {
				fmt.Fprintln(a.stdout, rc.Command)
				if rc.Indexed {
					fmt.Fprintln(a.stderr, "Added session to sessions-index.json")
				}
				if rc.Copied {
					fmt.Fprintln(a.stderr, "Copied to clipboard")
				}
			})
		},
	}

	sourceFlag(cmd, &source)
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory (default: the session's cwd)")
	cmd.Flags().BoolVar(&copyCmd, "copy", true, "Copy the command to the clipboard")

	return cmd
}

func openCmd(a *app) *cobra.Command {
	var line int

	cmd := &cobra.Command{
		Use:   "open <session-file>",
		Short: "Open a session file in $EDITOR at a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return open.InEditor(args[0], line)
		},
	}

	cmd.Flags().IntVar(&line, "line", 1, "1-based line to jump to")

	return cmd
}
