package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

const (
	sessionExt        = ".jsonl"
	SessionsIndexName = "sessions-index.json"
)

type FileInfo struct {
	Path    string
	Source  model.Source
	ModTime time.Time
	Size    int64
}

// Stem is the file name without its extension, which for claude logs is the
// session id.
func (f FileInfo) Stem() string {
	return strings.TrimSuffix(filepath.Base(f.Path), sessionExt)
}

type ProjectDir struct {
	Name    string // encoded directory name
	Path    string
	ModTime time.Time
}

// Files lists every session file of one source. A missing root yields no
// files, not an error: the CLI may simply never have been used.
func Files(src model.Source, root string) ([]FileInfo, error) {
	switch src {
	case model.SourceClaude:
		return claudeFiles(root)
	case model.SourceCodex:
		return CodexFiles(root)
	default:
		return nil, fmt.Errorf("scan %q: %w", src, model.ErrUnknownSource)
	}
}

// ClaudeProjects lists the project directories under the claude root.
func ClaudeProjects(root string) ([]ProjectDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	var dirs []ProjectDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, ProjectDir{
			Name:    e.Name(),
			Path:    filepath.Join(root, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	return dirs, nil
}

// ClaudeSessionFiles lists the session logs directly inside one project
// directory. Nested directories (subagent transcripts) are not sessions.
func ClaudeSessionFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project dir %s: %w", dir, model.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != sessionExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed while listing
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, e.Name()),
			Source:  model.SourceClaude,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return files, nil
}

func claudeFiles(root string) ([]FileInfo, error) {
	dirs, err := ClaudeProjects(root)
	if err != nil {
		return nil, err
	}
	var files []FileInfo
	for _, d := range dirs {
		fs, err := ClaudeSessionFiles(d.Path)
		if err != nil {
			continue
		}
		files = append(files, fs...)
	}
	return files, nil
}

// CodexFiles walks exactly <root>/<year>/<month>/<day>/*.jsonl.
func CodexFiles(root string) ([]FileInfo, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	var files []FileInfo
	for _, year := range subdirs(root) {
		for _, month := range subdirs(year) {
			for _, day := range subdirs(month) {
				entries, err := os.ReadDir(day)
				if err != nil {
					continue
				}
				for _, e := range entries {
					if e.IsDir() || filepath.Ext(e.Name()) != sessionExt {
						continue
					}
					info, err := e.Info()
					if err != nil {
						continue
					}
					files = append(files, FileInfo{
						Path:    filepath.Join(day, e.Name()),
						Source:  model.SourceCodex,
						ModTime: info.ModTime(),
						Size:    info.Size(),
					})
				}
			}
		}
	}
	return files, nil
}

func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // skip unreadable dirs
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

// DateFromPath derives YYYY-MM-DD from the year/month/day directories a
// codex rollout lives in. ok is false when path is not laid out that way.
func DateFromPath(path string) (string, bool) {
	day := filepath.Dir(path)
	month := filepath.Dir(day)
	year := filepath.Dir(month)
	y, err := strconv.Atoi(filepath.Base(year))
	if err != nil || y < 1 {
		return "", false
	}
	m, err := strconv.Atoi(filepath.Base(month))
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	d, err := strconv.Atoi(filepath.Base(day))
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

// DecodeProjectDir reverses claude's directory-name encoding of a project
// path. The encoding is lossy ('-' in the original path cannot be told
// apart) so this is only a fallback for a recorded originalPath.
func DecodeProjectDir(name string) string {
	if runtime.GOOS == "windows" {
		if len(name) >= 2 && name[1] == '-' {
			return name[:1] + ":" + strings.ReplaceAll(name[2:], "-", `\`)
		}
		return strings.ReplaceAll(name, "-", `\`)
	}
	return strings.ReplaceAll(name, "-", "/")
}

// ShortName is the last segment of a project path.
func ShortName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
