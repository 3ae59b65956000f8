package open

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/logging"
	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// ResumeCommand is the shell command that reopens a session in its CLI.
type ResumeCommand struct {
	Source    model.Source `json:"source" yaml:"source"`
	SessionID string       `json:"session_id" yaml:"session_id"`
	Dir       string       `json:"dir,omitempty" yaml:"dir,omitempty"`
	Command   string       `json:"command" yaml:"command"`
	Indexed   bool         `json:"indexed" yaml:"indexed"` // entry added to sessions-index.json
	Copied    bool         `json:"copied" yaml:"copied"`
}

// Resume builds the resume command for a session file. For claude the
// session is first added to its project's sessions-index.json when missing,
// since `claude --resume` only offers indexed sessions. A failing repair is
// logged and does not stop the resume.
func Resume(src model.Source, filePath, projectPath string, toClipboard bool) (ResumeCommand, error) {
	log := logging.ForComponent(logging.CompOpen)
	rc := ResumeCommand{Source: src, Dir: projectPath}

	switch src {
	case model.SourceClaude:
		rc.SessionID = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		if rc.Dir == "" {
			if meta, err := parse.ScanMeta(src, filePath); err == nil {
				rc.Dir = meta.Cwd
			}
		}
		added, err := index.EnsureSession(rc.SessionID, filePath, rc.Dir)
		switch {
		case errors.Is(err, model.ErrNotFound):
			return rc, err
		case err != nil:
			log.Warn("sessions_index_repair_skipped", slog.String("session", rc.SessionID), slog.String("error", err.Error()))
		}
		rc.Indexed = added
		rc.Command = "claude --resume " + rc.SessionID
	case model.SourceCodex:
		meta, err := parse.ScanMeta(src, filePath)
		if err != nil {
			return rc, err
		}
		rc.SessionID = codexSessionID(filePath, meta.SessionID)
		if rc.SessionID == "" {
			return rc, fmt.Errorf("no session id in %s: %w", filePath, model.ErrMalformed)
		}
		if rc.Dir == "" {
			rc.Dir = meta.Cwd
		}
		rc.Command = "codex resume " + rc.SessionID
	default:
		return rc, fmt.Errorf("resume: %w: %q", model.ErrUnknownSource, src)
	}

	if rc.Dir != "" {
		rc.Command = fmt.Sprintf("cd %s && %s", shellQuote(rc.Dir), rc.Command)
	}
	if toClipboard {
		if err := clipboard.WriteAll(rc.Command); err != nil {
			log.Warn("clipboard_unavailable", slog.String("error", err.Error()))
		} else {
			rc.Copied = true
		}
	}
	return rc, nil
}

// codexSessionID prefers the UUID that ends a rollout file name
// (rollout-<timestamp>-<uuid>.jsonl) and falls back to session_meta.
func codexSessionID(filePath, metaID string) string {
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if len(stem) >= 36 {
		if id, err := uuid.Parse(stem[len(stem)-36:]); err == nil {
			return id.String()
		}
	}
	return metaID
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
