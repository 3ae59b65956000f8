package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

// readSessionsIndex loads a project's sessions-index.json. A missing file is
// (nil, nil).
func readSessionsIndex(dir string) (*model.SessionsIndex, error) {
	data, err := os.ReadFile(filepath.Join(dir, scan.SessionsIndexName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var idx model.SessionsIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", scan.SessionsIndexName, model.ErrMalformed, err)
	}
	return &idx, nil
}

// ClaudeProjects lists every project directory that holds at least one
// session log, newest first.
func (ix *Indexer) ClaudeProjects() ([]model.Project, error) {
	dirs, err := scan.ClaudeProjects(ix.claudeRoot)
	if err != nil {
		return nil, err
	}
	projects := []model.Project{}
	for _, d := range dirs {
		files, err := scan.ClaudeSessionFiles(d.Path)
		if err != nil || len(files) == 0 {
			continue
		}
		display := scan.DecodeProjectDir(d.Name)
		if idx, err := readSessionsIndex(d.Path); err == nil && idx != nil && idx.OriginalPath != "" {
			display = idx.OriginalPath
		}
		projects = append(projects, model.Project{
			Source:       model.SourceClaude,
			ID:           d.Name,
			DisplayPath:  display,
			ShortName:    scan.ShortName(display),
			SessionCount: len(files),
			LastModified: d.ModTime,
		})
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].LastModified.After(projects[j].LastModified)
	})
	return projects, nil
}

// ClaudeProjectDir resolves a project id to its directory.
func (ix *Indexer) ClaudeProjectDir(projectID string) (string, error) {
	if projectID == "" || projectID == "." || projectID == ".." || strings.ContainsAny(projectID, `/\`) {
		return "", fmt.Errorf("project id %q: %w", projectID, model.ErrInvalidArgument)
	}
	dir := filepath.Join(ix.claudeRoot, projectID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	return dir, nil
}

// ClaudeSessions lists one project's sessions: the entries of its
// sessions-index.json plus any log on disk the index does not know about,
// one entry per session id. Sessions without messages are left out.
func (ix *Indexer) ClaudeSessions(ctx context.Context, projectID string) ([]model.Session, error) {
	dir, err := ix.ClaudeProjectDir(projectID)
	if err != nil {
		return nil, err
	}
	files, err := scan.ClaudeSessionFiles(dir)
	if err != nil {
		return nil, err
	}
	disk := make(map[string]scan.FileInfo, len(files))
	for _, fi := range files {
		if id := fi.Stem(); id != "" {
			disk[id] = fi
		}
	}

	idx, err := readSessionsIndex(dir)
	if err != nil {
		ix.log.Warn("sessions_index_unusable",
			slog.String("project", projectID),
			slog.String("error", err.Error()))
		idx = nil
	}

	var (
		sessions []model.Session
		known    = make(map[string]struct{})
		original string
	)
	if idx != nil && len(idx.Entries) > 0 {
		original = idx.OriginalPath
		for _, e := range idx.Entries {
			if e.SessionID == "" {
				continue
			}
			if _, dup := known[e.SessionID]; dup {
				continue
			}
			known[e.SessionID] = struct{}{}
			sessions = append(sessions, sessionFromIndexEntry(e, dir, original, disk))
		}
	}

	var missing []scan.FileInfo
	for id, fi := range disk {
		if _, ok := known[id]; !ok {
			missing = append(missing, fi)
		}
	}
	results, err := ix.scanFiles(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if !r.ok {
			continue
		}
		s := claudeSessionFromFile(r.file, r.meta)
		if s.ProjectPath == "" {
			s.ProjectPath = original
		}
		sessions = append(sessions, s)
	}

	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.MessageCount > 0 {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out, nil
}

func sessionFromIndexEntry(e model.SessionsIndexEntry, dir, originalPath string, disk map[string]scan.FileInfo) model.Session {
	path := e.FullPath
	if path == "" {
		path = filepath.Join(dir, e.SessionID+".jsonl")
	}
	s := model.Session{
		Source:      model.SourceClaude,
		SessionID:   e.SessionID,
		FilePath:    path,
		FirstPrompt: e.FirstPrompt,
		Created:     parse.ParseTimestamp(e.Created),
		Modified:    parse.ParseTimestamp(e.Modified),
		GitBranch:   e.GitBranch,
		ProjectPath: e.ProjectPath,
		IsSidechain: e.IsSidechain,
	}
	if e.MessageCount != nil {
		s.MessageCount = *e.MessageCount
	}
	if s.ProjectPath == "" {
		s.ProjectPath = originalPath
	}
	if fi, ok := disk[e.SessionID]; ok && s.Modified.IsZero() {
		s.Modified = fi.ModTime
	}
	return s
}

func claudeSessionFromFile(fi scan.FileInfo, meta parse.FileMeta) model.Session {
	created := parse.ParseTimestamp(meta.Started)
	if created.IsZero() {
		created = fi.ModTime
	}
	sidechain := false
	if meta.IsSidechain != nil {
		sidechain = *meta.IsSidechain
	}
	return model.Session{
		Source:       model.SourceClaude,
		SessionID:    fi.Stem(),
		FilePath:     fi.Path,
		FirstPrompt:  meta.FirstPrompt,
		MessageCount: meta.MessageCount,
		Created:      created,
		Modified:     fi.ModTime,
		GitBranch:    meta.GitBranch,
		ProjectPath:  meta.Cwd,
		IsSidechain:  &sidechain,
	}
}

func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Modified.After(sessions[j].Modified)
	})
}
