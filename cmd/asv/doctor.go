package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

type rootReport struct {
	Source model.Source `json:"source" yaml:"source"`
	Path   string       `json:"path" yaml:"path"`
	Status string       `json:"status" yaml:"status"`
	Files  int          `json:"files" yaml:"files"`
}

type doctorReport struct {
	Roots       []rootReport         `json:"roots" yaml:"roots"`
	StatsFile   string               `json:"stats_file" yaml:"stats_file"`
	StatsStatus string               `json:"stats_status" yaml:"stats_status"`
	CacheDB     string               `json:"cache_db" yaml:"cache_db"`
	CacheStatus string               `json:"cache_status" yaml:"cache_status"`
	CacheSize   int64                `json:"cache_size_bytes,omitempty" yaml:"cache_size_bytes,omitempty"`
	CachedFiles map[model.Source]int `json:"cached_files,omitempty" yaml:"cached_files,omitempty"`
	Refresh     string               `json:"refresh,omitempty" yaml:"refresh,omitempty"`
}

func doctorCmd(a *app) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify roots and the metadata cache, and show counts",
		Long: `Checks the session roots and the stats file, counts session files and
reports the metadata cache. With --prune the cache is first brought up to
date and rows for deleted files are dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := doctorReport{
				StatsFile:   a.cfg.ClaudeStats,
				StatsStatus: checkPath(a.cfg.ClaudeStats, false),
				CacheDB:     a.cfg.CacheDB,
			}

			for _, src := range model.Sources {
				root := a.cfg.ClaudeRoot
				if src == model.SourceCodex {
					root = a.cfg.CodexRoot
				}
				r := rootReport{Source: src, Path: root, Status: checkPath(root, true)}
				if files, err := scan.Files(src, root); err != nil {
					r.Status = "SCAN ERROR: " + err.Error()
				} else {
					r.Files = len(files)
				}
				rep.Roots = append(rep.Roots, r)
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}
			db := eng.Indexer().DB()
			switch {
			case a.cfg.CacheDB == "":
				rep.CacheStatus = "disabled"
			case db == nil:
				rep.CacheStatus = "UNAVAILABLE (see warnings)"
			default:
				rep.CacheStatus = "OK"
				if prune {
					st, err := eng.Indexer().Refresh(cmd.Context())
					if err != nil {
						return fmt.Errorf("refresh cache: %w", err)
					}
					rep.Refresh = st.String()
				}
				counts, err := db.Count()
				if err != nil {
					return fmt.Errorf("count cache: %w", err)
				}
				rep.CachedFiles = counts
				if info, err := os.Stat(a.cfg.CacheDB); err == nil {
					rep.CacheSize = info.Size()
				}
			}

			return a.out.Value(rep, func() { printDoctor(a, rep) })
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Refresh the metadata cache and drop rows for deleted files")

	return cmd
}

func printDoctor(a *app, rep doctorReport) {
	w := a.stdout
	fmt.Fprintln(w, "=== Roots ===")
	for _, r := range rep.Roots {
		fmt.Fprintf(w, "  %-7s %s (%s)\n", r.Source+":", r.Path, r.Status)
	}
	fmt.Fprintf(w, "  %-7s %s (%s)\n", "stats:", rep.StatsFile, rep.StatsStatus)

	fmt.Fprintln(w, "\n=== Session Files ===")
	for _, r := range rep.Roots {
		fmt.Fprintf(w, "  %-7s %s\n", r.Source+":", humanize.Comma(int64(r.Files)))
	}

	fmt.Fprintln(w, "\n=== Metadata Cache ===")
	fmt.Fprintf(w, "  Path:   %s\n", rep.CacheDB)
	fmt.Fprintf(w, "  Status: %s\n", rep.CacheStatus)
	if rep.Refresh != "" {
		fmt.Fprintf(w, "  Refresh: %s\n", rep.Refresh)
	}
	for _, src := range model.Sources {
		if n, ok := rep.CachedFiles[src]; ok {
			fmt.Fprintf(w, "  Cached %s files: %s\n", src, humanize.Comma(int64(n)))
		}
	}
	if rep.CacheSize > 0 {
		fmt.Fprintf(w, "  Size:   %s\n", humanize.Bytes(uint64(rep.CacheSize)))
	}
}

func checkPath(path string, wantDir bool) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return "NOT FOUND"
	case wantDir && !info.IsDir():
		return "NOT A DIRECTORY"
	default:
		return "OK"
	}
}
