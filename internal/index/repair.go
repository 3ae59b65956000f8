package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
)

// EnsureSession appends an entry for sessionID to the sessions-index.json
// next to filePath so `claude --resume` can find it. It is a no-op when the
// entry exists, creates the index when there is none, and refuses to touch
// an index it cannot parse. Fields it does not know are kept as they are.
func EnsureSession(sessionID, filePath, projectPath string) (added bool, err error) {
	if sessionID == "" {
		return false, fmt.Errorf("session id: %w", model.ErrInvalidArgument)
	}
	indexPath := filepath.Join(filepath.Dir(filePath), scan.SessionsIndexName)

	doc := map[string]json.RawMessage{}
	var entries []json.RawMessage
	data, err := os.ReadFile(indexPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		doc["version"] = json.RawMessage(`1`)
		if projectPath != "" {
			doc["originalPath"], _ = json.Marshal(projectPath)
		}
	case err != nil:
		return false, fmt.Errorf("read %s: %w", indexPath, err)
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return false, fmt.Errorf("%s: %w: %v", indexPath, model.ErrMalformed, err)
		}
		if raw, ok := doc["entries"]; ok && string(raw) != "null" {
			if err := json.Unmarshal(raw, &entries); err != nil {
				return false, fmt.Errorf("%s entries: %w: %v", indexPath, model.ErrMalformed, err)
			}
		}
	}

	for _, e := range entries {
		if gjson.GetBytes(e, "sessionId").Str == sessionID {
			return false, nil
		}
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("session file %s: %w", filePath, model.ErrNotFound)
		}
		return false, err
	}
	meta, err := parse.ScanMeta(model.SourceClaude, filePath)
	if err != nil {
		return false, err
	}

	entry := newIndexEntry(sessionID, filePath, projectPath, info, meta)
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	entries = append(entries, raw)
	if doc["entries"], err = json.Marshal(entries); err != nil {
		return false, err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, err
	}
	if err := writeFileAtomic(indexPath, out); err != nil {
		return false, err
	}
	return true, nil
}

func newIndexEntry(sessionID, filePath, projectPath string, info os.FileInfo, meta parse.FileMeta) model.SessionsIndexEntry {
	mtime := info.ModTime().UnixMilli()
	count := meta.MessageCount
	sidechain := false
	created := meta.Started
	if created == "" {
		created = info.ModTime().UTC().Format(time.RFC3339)
	}
	cwd := meta.Cwd
	if cwd == "" {
		cwd = projectPath
	}
	return model.SessionsIndexEntry{
		SessionID:    sessionID,
		FullPath:     filePath,
		FileMtime:    &mtime,
		FirstPrompt:  meta.FirstPrompt,
		MessageCount: &count,
		Created:      created,
		Modified:     info.ModTime().UTC().Format(time.RFC3339),
		GitBranch:    meta.GitBranch,
		ProjectPath:  cwd,
		IsSidechain:  &sidechain,
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sessions-index-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
