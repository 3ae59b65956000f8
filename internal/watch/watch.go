// Package watch reports changed session files in debounced batches.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
)

// DefaultDelay is how long the notifier waits after the last event before
// delivering a batch.
const DefaultDelay = 300 * time.Millisecond

type Notifier struct {
	w       *fsnotify.Watcher
	delay   time.Duration
	batches chan []string
	log     *slog.Logger
}

// New watches the claude root and its project directories plus the whole
// codex tree. Roots that do not exist are skipped.
func New(claudeRoot, codexRoot string) (*Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &Notifier{
		w:       w,
		delay:   DefaultDelay,
		batches: make(chan []string, 1),
		log:     logging.ForComponent(logging.CompWatch),
	}
	// JSONL files only live one level below the claude root; deeper
	// directories (subagents, tool results) are not watched.
	n.addTree(claudeRoot, 1)
	n.addTree(codexRoot, 3)
	if len(w.WatchList()) == 0 {
		w.Close()
		return nil, errors.New("no session roots to watch")
	}
	return n, nil
}

// SetDelay changes the debounce window. Call before Run.
func (n *Notifier) SetDelay(d time.Duration) {
	n.delay = d
}

// Batches delivers changed paths. It is closed when Run returns.
func (n *Notifier) Batches() <-chan []string {
	return n.batches
}

func (n *Notifier) Close() error {
	return n.w.Close()
}

func (n *Notifier) addTree(root string, depth int) {
	if root == "" {
		return
	}
	if _, err := os.Stat(root); err != nil {
		return
	}
	n.add(root)
	if depth == 0 {
		return
	}
	entries, _ := os.ReadDir(root)
	for _, e := range entries {
		if e.IsDir() {
			n.addTree(filepath.Join(root, e.Name()), depth-1)
		}
	}
}

func (n *Notifier) add(dir string) {
	if err := n.w.Add(dir); err != nil {
		n.log.Warn("watch_add_failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}

func relevant(name string) bool {
	return strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".json")
}

// Run coalesces events until ctx is done. Each batch holds every path that
// changed since the previous one, sorted and without duplicates.
func (n *Notifier) Run(ctx context.Context) {
	defer close(n.batches)

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-n.w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// new project or day directory
					n.add(event.Name)
					continue
				}
			}
			if !relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(n.delay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(n.delay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			clear(pending)
			select {
			case n.batches <- batch:
			case <-ctx.Done():
				return
			}

		case err, ok := <-n.w.Errors:
			if !ok {
				return
			}
			n.log.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}
