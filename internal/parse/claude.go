package parse

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

// Bulky record kinds that never carry conversation content.
var claudeSkipMarkers = [][]byte{
	[]byte(`"type":"file-history-snapshot"`),
	[]byte(`"type":"progress"`),
}

type claudeRecord struct {
	Type        string         `json:"type"`
	UUID        string         `json:"uuid"`
	SessionID   string         `json:"sessionId"`
	Timestamp   string         `json:"timestamp"`
	Cwd         string         `json:"cwd"`
	GitBranch   string         `json:"gitBranch"`
	IsSidechain *bool          `json:"isSidechain"`
	Message     *claudeMessage `json:"message"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type claudeContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

func skipClaudeLine(line []byte) bool {
	for _, m := range claudeSkipMarkers {
		if bytes.Contains(line, m) {
			return true
		}
	}
	return false
}

// decodeClaude turns one log line into a display message. ok is false for
// anything that is not a user or assistant turn with visible content.
func decodeClaude(line []byte) (msg model.Message, ok bool) {
	if skipClaudeLine(line) {
		return msg, false
	}
	var rec claudeRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return msg, false
	}
	if rec.Type != "user" && rec.Type != "assistant" {
		return msg, false
	}
	if rec.Message == nil {
		return msg, false
	}
	blocks, ok := claudeBlocks(rec.Message.Content)
	if !ok || len(blocks) == 0 {
		return msg, false
	}
	role := rec.Message.Role
	if role == "" {
		role = rec.Type
	}
	return model.Message{
		ID:        rec.UUID,
		Role:      role,
		Timestamp: rec.Timestamp,
		Model:     rec.Message.Model,
		Content:   blocks,
	}, true
}

// claudeBlocks normalizes message.content, which is either a plain string or
// an array of typed blocks. Blocks of unknown type are dropped.
func claudeBlocks(raw json.RawMessage) ([]model.Block, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, true
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		if strings.TrimSpace(s) == "" {
			return nil, true
		}
		return []model.Block{model.TextBlock(s)}, true
	case '[':
		var items []claudeContentBlock
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
		blocks := make([]model.Block, 0, len(items))
		for _, it := range items {
			switch it.Type {
			case "text":
				if strings.TrimSpace(it.Text) != "" {
					blocks = append(blocks, model.TextBlock(it.Text))
				}
			case "thinking":
				if strings.TrimSpace(it.Thinking) != "" {
					blocks = append(blocks, model.ThinkingBlock(it.Thinking))
				}
			case "tool_use":
				blocks = append(blocks, model.ToolUseBlock(it.ID, it.Name, prettyJSON(it.Input)))
			case "tool_result":
				blocks = append(blocks, model.ToolResultBlock(it.ToolUseID, flattenToolResult(it.Content), it.IsError))
			}
		}
		return blocks, true
	default:
		return nil, false
	}
}

// flattenToolResult renders tool_result content: strings pass through, arrays
// of sub-blocks are joined by their text fields, anything else is
// pretty-printed.
func flattenToolResult(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	res := gjson.ParseBytes(raw)
	switch {
	case res.Type == gjson.Null:
		return ""
	case res.Type == gjson.String:
		return res.Str
	case res.IsArray():
		var parts []string
		res.ForEach(func(_, item gjson.Result) bool {
			if t := item.Get("text"); t.Type == gjson.String {
				parts = append(parts, t.Str)
			}
			return true
		})
		return strings.Join(parts, "\n")
	default:
		return prettyJSON(raw)
	}
}

// prettyJSON indents raw with two spaces, returning it verbatim when it is
// not valid JSON.
func prettyJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
