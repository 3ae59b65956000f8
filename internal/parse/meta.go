package parse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

const (
	claudeMetaLines = 10
	codexMetaLines  = 5
)

// FileMeta is what a listing needs to know about one session file. It is
// gathered in a single forward pass without materializing any message.
type FileMeta struct {
	SessionID     string      `json:"session_id,omitempty"`
	Cwd           string      `json:"cwd,omitempty"`
	GitBranch     string      `json:"git_branch,omitempty"`
	CLIVersion    string      `json:"cli_version,omitempty"`
	ModelProvider string      `json:"model_provider,omitempty"`
	Started       string      `json:"started,omitempty"`
	IsSidechain   *bool       `json:"is_sidechain,omitempty"`
	FirstPrompt   string      `json:"first_prompt,omitempty"`
	MessageCount  int         `json:"message_count"`
	Tokens        *TokenUsage `json:"tokens,omitempty"`
}

// TokenUsage is a cumulative token_count snapshot from a codex rollout.
type TokenUsage struct {
	Input  uint64 `json:"input"`
	Output uint64 `json:"output"`
	Total  uint64 `json:"total"`
}

// ScanMeta reads the listing metadata of one session file.
func ScanMeta(src model.Source, path string) (FileMeta, error) {
	var visit func(meta *FileMeta, lineNo int, line []byte)
	switch src {
	case model.SourceClaude:
		visit = visitClaudeMeta
	case model.SourceCodex:
		visit = visitCodexMeta
	default:
		return FileMeta{}, fmt.Errorf("scan %s: %w", path, model.ErrUnknownSource)
	}

	f, err := openSession(path)
	if err != nil {
		return FileMeta{}, err
	}
	defer f.Close()

	var meta FileMeta
	err = eachLine(f, func(lineNo int, line []byte) bool {
		visit(&meta, lineNo, line)
		return true
	})
	if err != nil {
		return meta, fmt.Errorf("scan %s: %w: %v", path, model.ErrMalformed, err)
	}
	return meta, nil
}

var (
	claudeUserMarker      = []byte(`"type":"user"`)
	claudeAssistantMarker = []byte(`"type":"assistant"`)
)

func visitClaudeMeta(meta *FileMeta, lineNo int, line []byte) {
	if lineNo <= claudeMetaLines && meta.SessionID == "" && !skipClaudeLine(line) {
		r := gjson.GetManyBytes(line, "sessionId", "gitBranch", "cwd", "timestamp", "isSidechain")
		if r[0].Str != "" {
			meta.SessionID = r[0].Str
			meta.GitBranch = r[1].Str
			meta.Cwd = r[2].Str
			if r[4].IsBool() {
				b := r[4].Bool()
				meta.IsSidechain = &b
			}
		}
		if meta.Started == "" {
			meta.Started = r[3].Str
		}
	}

	isUser := bytes.Contains(line, claudeUserMarker)
	if !isUser && !bytes.Contains(line, claudeAssistantMarker) {
		return
	}
	switch gjson.GetBytes(line, "type").Str {
	case "user", "assistant":
		meta.MessageCount++
	default:
		return
	}
	if isUser && meta.FirstPrompt == "" {
		meta.FirstPrompt = claudeFirstPrompt(line)
	}
}

func claudeFirstPrompt(line []byte) string {
	msg, ok := decodeClaude(line)
	if !ok || msg.Role != "user" {
		return ""
	}
	for _, b := range msg.Content {
		if b.Type == model.BlockText {
			return Prompt(b.Text)
		}
	}
	return ""
}

// Injected context codex prepends to the first user turn.
var codexBoilerplate = []string{
	"<environment_context>",
	"<user_instructions>",
	"<permissions",
	"# AGENTS.md",
}

func isCodexBoilerplate(text string) bool {
	t := strings.TrimSpace(text)
	for _, p := range codexBoilerplate {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

func hasEither(line []byte, a, b string) bool {
	return bytes.Contains(line, []byte(a)) || bytes.Contains(line, []byte(b))
}

func visitCodexMeta(meta *FileMeta, lineNo int, line []byte) {
	if lineNo <= codexMetaLines && meta.SessionID == "" && hasEither(line, `"type":"session_meta"`, `"type": "session_meta"`) {
		if gjson.GetBytes(line, "type").Str == "session_meta" {
			r := gjson.GetManyBytes(line,
				"payload.id", "payload.cwd", "payload.cli_version",
				"payload.model_provider", "payload.git.branch", "payload.timestamp", "timestamp")
			meta.SessionID = r[0].Str
			meta.Cwd = r[1].Str
			meta.CLIVersion = r[2].Str
			meta.ModelProvider = r[3].Str
			meta.GitBranch = r[4].Str
			meta.Started = r[5].Str
			if meta.Started == "" {
				meta.Started = r[6].Str
			}
		}
		return
	}

	if bytes.Contains(line, []byte(`"token_count"`)) {
		if u, ok := codexTokenSnapshot(line); ok {
			meta.Tokens = &u
		}
		return
	}

	if !hasEither(line, `"type":"response_item"`, `"type": "response_item"`) ||
		!hasEither(line, `"type":"message"`, `"type": "message"`) {
		return
	}
	r := gjson.GetManyBytes(line, "type", "payload.type", "payload.role")
	if r[0].Str != "response_item" || r[1].Str != "message" {
		return
	}
	switch r[2].Str {
	case "user":
		meta.MessageCount++
		if meta.FirstPrompt == "" {
			meta.FirstPrompt = codexFirstPrompt(line)
		}
	case "assistant":
		meta.MessageCount++
	}
}

func codexFirstPrompt(line []byte) string {
	var prompt string
	gjson.GetBytes(line, "payload.content").ForEach(func(_, item gjson.Result) bool {
		switch item.Get("type").Str {
		case "input_text", "text":
		default:
			return true
		}
		text := item.Get("text").Str
		if strings.TrimSpace(text) == "" || isCodexBoilerplate(text) {
			return true
		}
		prompt = Prompt(text)
		return false
	})
	return prompt
}

// codexTokenSnapshot reads the cumulative usage from an event_msg
// token_count line. Snapshots only grow, so the last one in a file wins.
func codexTokenSnapshot(line []byte) (TokenUsage, bool) {
	r := gjson.GetManyBytes(line, "type", "payload.type", "payload.info.total_token_usage")
	if r[0].Str != "event_msg" || r[1].Str != "token_count" || !r[2].IsObject() {
		return TokenUsage{}, false
	}
	usage := r[2]
	u := TokenUsage{
		Input:  usage.Get("input_tokens").Uint(),
		Output: usage.Get("output_tokens").Uint(),
		Total:  usage.Get("total_tokens").Uint(),
	}
	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	return u, true
}

// FirstPrompt picks the opening user prompt out of materialized messages,
// skipping the context codex injects ahead of it.
func FirstPrompt(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		for _, b := range m.Content {
			if b.Type != model.BlockText || isCodexBoilerplate(b.Text) {
				continue
			}
			return Prompt(b.Text)
		}
	}
	return ""
}
