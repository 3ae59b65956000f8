package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

// Indexer lists projects and sessions straight from the session roots.
// The optional DB only memoizes per-file metadata scans.
type Indexer struct {
	claudeRoot string
	codexRoot  string
	db         *DB
	log        *slog.Logger
}

// New returns an Indexer. db may be nil.
func New(claudeRoot, codexRoot string, db *DB) *Indexer {
	return &Indexer{
		claudeRoot: claudeRoot,
		codexRoot:  codexRoot,
		db:         db,
		log:        logging.ForComponent(logging.CompIndex),
	}
}

// Root returns the session root configured for src.
func (ix *Indexer) Root(src model.Source) (string, error) {
	switch src {
	case model.SourceClaude:
		return ix.claudeRoot, nil
	case model.SourceCodex:
		return ix.codexRoot, nil
	}
	return "", fmt.Errorf("root for %q: %w", src, model.ErrUnknownSource)
}

// DB is the metadata cache, nil when none is configured.
func (ix *Indexer) DB() *DB {
	return ix.db
}

type Stats struct {
	Scanned int
	Cached  int
	Updated int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d cached=%d updated=%d pruned=%d errors=%d",
		s.Scanned, s.Cached, s.Updated, s.Pruned, s.Errors)
}

// Refresh brings the metadata cache up to date with every session file and
// drops rows for files that are gone.
func (ix *Indexer) Refresh(ctx context.Context) (Stats, error) {
	var stats Stats
	if ix.db == nil {
		return stats, errors.New("no metadata cache configured")
	}

	seen := make(map[string]struct{})
	for _, src := range model.Sources {
		root, _ := ix.Root(src)
		files, err := scan.Files(src, root)
		if err != nil {
			return stats, fmt.Errorf("scan %s: %w", src, err)
		}
		stats.Scanned += len(files)

		for _, fi := range files {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			seen[fi.Path] = struct{}{}

			_, ok, err := ix.db.Get(fi.Path, fi.ModTime, fi.Size)
			if err == nil && ok {
				stats.Cached++
				continue
			}
			meta, err := parse.ScanMeta(fi.Source, fi.Path)
			if err != nil {
				stats.Errors++
				ix.log.Warn("scan_meta_failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
				continue
			}
			if err := ix.db.Put(fi.Source, fi.Path, fi.ModTime, fi.Size, meta); err != nil {
				stats.Errors++
				ix.log.Warn("meta_cache_write_failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
				continue
			}
			stats.Updated++
		}
	}

	pruned, err := ix.prune(seen)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned
	return stats, nil
}

func (ix *Indexer) prune(seen map[string]struct{}) (int, error) {
	all, err := ix.db.AllPaths()
	if err != nil {
		return 0, err
	}
	pruned := 0
	for p := range all {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := ix.db.Delete(p); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// fileMeta is a read-through lookup: a cache hit requires matching mtime and
// size, a miss scans the file and records the result.
func (ix *Indexer) fileMeta(fi scan.FileInfo) (parse.FileMeta, error) {
	if ix.db != nil {
		meta, ok, err := ix.db.Get(fi.Path, fi.ModTime, fi.Size)
		if err != nil {
			ix.log.Debug("meta_cache_read_failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
		} else if ok {
			return meta, nil
		}
	}
	meta, err := parse.ScanMeta(fi.Source, fi.Path)
	if err != nil {
		return meta, err
	}
	if ix.db != nil {
		if err := ix.db.Put(fi.Source, fi.Path, fi.ModTime, fi.Size, meta); err != nil {
			ix.log.Debug("meta_cache_write_failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
		}
	}
	return meta, nil
}

type scanned struct {
	file scan.FileInfo
	meta parse.FileMeta
	ok   bool
}

// scanFiles gathers metadata for many files on a bounded pool. Each task
// owns one slot of the result, so no locking is needed.
func (ix *Indexer) scanFiles(ctx context.Context, files []scan.FileInfo) ([]scanned, error) {
	out := make([]scanned, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, fi := range files {
		i, fi := i, fi
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta, err := ix.fileMeta(fi)
			if err != nil {
				ix.log.Debug("skip_session_file", slog.String("path", fi.Path), slog.String("error", err.Error()))
				out[i] = scanned{file: fi}
				return nil
			}
			out[i] = scanned{file: fi, meta: meta, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
