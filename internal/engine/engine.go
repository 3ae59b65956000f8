// Package engine is the query entry point: it dispatches on the source tag
// and keeps an optional LRU of materialized sessions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Zuo-Peng/ai-session-viewer/internal/config"
	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/page"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
	"github.com/Zuo-Peng/ai-session-viewer/internal/stats"
)

type Options struct {
	ClaudeRoot  string
	ClaudeStats string
	CodexRoot   string

	// DB memoizes listing metadata. Optional.
	DB *index.DB

	// SessionCacheSize bounds the LRU of materialized sessions; 0 disables it.
	SessionCacheSize int
}

// cacheKey identifies a session file by source, parent directory name and
// file stem.
type cacheKey struct {
	source  model.Source
	project string
	session string
}

func keyFor(src model.Source, path string) cacheKey {
	return cacheKey{
		source:  src,
		project: filepath.Base(filepath.Dir(path)),
		session: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
}

// Engine answers every query from the files on disk. The session LRU is the
// only state it keeps; it is filled on reads and emptied only by Invalidate.
type Engine struct {
	opts  Options
	ix    *index.Indexer
	cache *lru.Cache[cacheKey, []model.Message]
	log   *slog.Logger
}

func New(opts Options) (*Engine, error) {
	e := &Engine{
		opts: opts,
		ix:   index.New(opts.ClaudeRoot, opts.CodexRoot, opts.DB),
		log:  logging.ForComponent(logging.CompEngine),
	}
	if opts.SessionCacheSize > 0 {
		c, err := lru.New[cacheKey, []model.Message](opts.SessionCacheSize)
		if err != nil {
			return nil, fmt.Errorf("session cache: %w", err)
		}
		e.cache = c
	}
	return e, nil
}

// FromConfig builds an Engine from cfg, opening the metadata cache when one
// is configured. A cache that fails to open is logged and left out.
func FromConfig(cfg *config.Config) (*Engine, error) {
	opts := Options{
		ClaudeRoot:       cfg.ClaudeRoot,
		ClaudeStats:      cfg.ClaudeStats,
		CodexRoot:        cfg.CodexRoot,
		SessionCacheSize: cfg.SessionCacheSize,
	}
	if cfg.CacheDB != "" {
		db, err := index.OpenDB(cfg.CacheDB)
		if err != nil {
			logging.ForComponent(logging.CompEngine).Warn("meta_cache_disabled",
				slog.String("path", cfg.CacheDB), slog.String("error", err.Error()))
		} else {
			opts.DB = db
		}
	}
	return New(opts)
}

func (e *Engine) Close() error {
	if e.opts.DB != nil {
		return e.opts.DB.Close()
	}
	return nil
}

// Indexer exposes the underlying indexer for maintenance commands.
func (e *Engine) Indexer() *index.Indexer {
	return e.ix
}

func (e *Engine) Projects(ctx context.Context, src model.Source) ([]model.Project, error) {
	switch src {
	case model.SourceClaude:
		return e.ix.ClaudeProjects()
	case model.SourceCodex:
		return e.ix.CodexProjects(ctx)
	}
	return nil, fmt.Errorf("projects: %w: %q", model.ErrUnknownSource, src)
}

func (e *Engine) Sessions(ctx context.Context, src model.Source, projectID string) ([]model.Session, error) {
	switch src {
	case model.SourceClaude:
		return e.ix.ClaudeSessions(ctx, projectID)
	case model.SourceCodex:
		return e.ix.CodexSessions(ctx, projectID)
	}
	return nil, fmt.Errorf("sessions: %w: %q", model.ErrUnknownSource, src)
}

// Messages returns one page of a session. With fromEnd, page 0 holds the
// newest messages.
func (e *Engine) Messages(src model.Source, filePath string, pageNum, pageSize int, fromEnd bool) (model.Page, error) {
	if _, err := model.ParseSource(string(src)); err != nil {
		return model.Page{}, fmt.Errorf("messages: %w", err)
	}
	if filePath == "" {
		return model.Page{}, fmt.Errorf("messages: empty file path: %w", model.ErrInvalidArgument)
	}
	if pageSize <= 0 || pageNum < 0 {
		return model.Page{}, fmt.Errorf("messages: page %d size %d: %w", pageNum, pageSize, model.ErrInvalidArgument)
	}
	msgs, err := e.session(src, filePath)
	if err != nil {
		return model.Page{}, err
	}
	return page.Slice(msgs, pageNum, pageSize, fromEnd)
}

func (e *Engine) session(src model.Source, path string) ([]model.Message, error) {
	key := keyFor(src, path)
	if e.cache != nil {
		if msgs, ok := e.cache.Get(key); ok {
			return msgs, nil
		}
	}
	msgs, err := parse.ReadSession(src, path)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(key, msgs)
	}
	return msgs, nil
}

// Search scans every session file of opts.Source; it never consults the
// listing caches.
func (e *Engine) Search(ctx context.Context, opts search.Options) ([]search.Result, error) {
	root, err := e.ix.Root(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if strings.TrimSpace(opts.Query) == "" {
		return []search.Result{}, nil
	}
	cands, err := search.Candidates(opts.Source, root)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return search.Run(ctx, opts, cands)
}

func (e *Engine) Stats(ctx context.Context, src model.Source) (model.UsageSummary, error) {
	switch src {
	case model.SourceClaude:
		return stats.Claude(e.opts.ClaudeStats)
	case model.SourceCodex:
		return stats.Codex(ctx, e.opts.CodexRoot)
	}
	return model.UsageSummary{}, fmt.Errorf("stats: %w: %q", model.ErrUnknownSource, src)
}

// Invalidate drops cached sessions for the changed paths and reports how
// many entries were evicted. Paths that were never cached are ignored.
func (e *Engine) Invalidate(paths []string) int {
	if e.cache == nil || len(paths) == 0 {
		return 0
	}
	changed := make(map[cacheKey]struct{}, len(paths))
	for _, p := range paths {
		k := keyFor("", p)
		changed[k] = struct{}{}
	}
	n := 0
	for _, k := range e.cache.Keys() {
		if _, ok := changed[cacheKey{project: k.project, session: k.session}]; ok {
			e.cache.Remove(k)
			n++
		}
	}
	if n > 0 {
		e.log.Debug("sessions_invalidated", slog.Int("count", n))
	}
	return n
}

// Cached reports how many sessions the LRU currently holds.
func (e *Engine) Cached() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
