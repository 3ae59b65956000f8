package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/output"
	"github.com/Zuo-Peng/ai-session-viewer/internal/watch"
)

type changeBatch struct {
	Time        time.Time `json:"time"`
	Paths       []string  `json:"paths"`
	Invalidated int       `json:"invalidated"`
}

func watchCmd(a *app) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print session files as they change",
		Long: `Watches both session roots and prints each debounced batch of changed
files until interrupted. With --format json each batch is one JSON line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			n, err := watch.New(a.cfg.ClaudeRoot, a.cfg.CodexRoot)
			if err != nil {
				return err
			}
			defer n.Close()
			n.SetDelay(delay)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			go n.Run(ctx)

			fmt.Fprintf(a.stderr, "Watching %s and %s (Ctrl-C to stop)\n", a.cfg.ClaudeRoot, a.cfg.CodexRoot)
			enc := json.NewEncoder(a.stdout)
			for paths := range n.Batches() {
				b := changeBatch{Time: time.Now(), Paths: paths, Invalidated: eng.Invalidate(paths)}
				if a.out.Format() != output.Table {
					if err := enc.Encode(b); err != nil {
						return err
					}
					continue
				}
				for _, p := range paths {
					fmt.Fprintf(a.stdout, "%s  %s\n", b.Time.Format("15:04:05"), p)
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", watch.DefaultDelay, "Debounce delay")

	return cmd
}
