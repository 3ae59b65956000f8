package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ai-session-viewer/internal/config"
	"github.com/Zuo-Peng/ai-session-viewer/internal/engine"
	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/output"
)

var version = "dev"

// app carries the state shared by every subcommand. The engine is opened
// on first use so commands like open never touch the metadata cache.
type app struct {
	cfgPath string
	verbose bool
	format  string

	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
	eng *engine.Engine
	out *output.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "asv",
		Short:         "AI Session Viewer - browse, search and resume Claude Code and Codex sessions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "Config file (default ~/.config/asv/config.toml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&a.format, "format", "table", "Output format: table|json|yaml")

	rootCmd.AddCommand(projectsCmd(a))
	rootCmd.AddCommand(sessionsCmd(a))
	rootCmd.AddCommand(messagesCmd(a))
	rootCmd.AddCommand(searchCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(resumeCmd(a))
	rootCmd.AddCommand(openCmd(a))
	rootCmd.AddCommand(watchCmd(a))
	rootCmd.AddCommand(doctorCmd(a))

	return rootCmd
}

func (a *app) setup() error {
	format, err := output.ParseFormat(a.format)
	if err != nil {
		return err
	}
	a.out = output.New(a.stdout, format)

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.verbose {
		lvl = slog.LevelDebug
	}
	logging.Setup(a.stderr, lvl, false)
	return nil
}

func (a *app) engine() (*engine.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}
	eng, err := engine.FromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	a.eng = eng
	return eng, nil
}

func (a *app) close() error {
	if a.eng == nil {
		return nil
	}
	err := a.eng.Close()
	a.eng = nil
	return err
}

func sourceFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "source", "s", string(model.SourceClaude), "Log source (claude/codex)")
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termWidth is the width of w when it is a terminal, else 0 (no wrapping).
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
