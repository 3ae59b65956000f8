package parse

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

type codexEnvelope struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type codexPayload struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	CallID    string          `json:"call_id"`
	Output    json.RawMessage `json:"output"`
	Text      json.RawMessage `json:"text"`
	Summary   json.RawMessage `json:"summary"`
}

// decodeCodex turns one rollout line into a display message. Only
// response_item envelopes are interpreted.
func decodeCodex(line []byte) (msg model.Message, ok bool) {
	var env codexEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return msg, false
	}
	if env.Type != "response_item" || len(env.Payload) == 0 {
		return msg, false
	}
	var p codexPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return msg, false
	}

	msg.Timestamp = env.Timestamp
	switch p.Type {
	case "message":
		if p.Role != "user" && p.Role != "assistant" {
			return msg, false
		}
		msg.Role = p.Role
		msg.Content = codexContent(p.Content)
	case "function_call":
		name := p.Name
		if name == "" {
			name = "unknown"
		}
		args := Truncate(codexArguments(p.Arguments), MaxArgsRunes)
		msg.Role = "assistant"
		msg.Content = []model.Block{model.FunctionCallBlock(name, args, p.CallID)}
	case "function_call_output":
		out := Truncate(stringOrPretty(p.Output), MaxOutputRunes)
		msg.Role = "tool"
		msg.Content = []model.Block{model.FunctionCallOutputBlock(p.CallID, out)}
	case "reasoning":
		text := reasoningText(p)
		if strings.TrimSpace(text) == "" {
			return msg, false
		}
		msg.Role = "assistant"
		msg.Content = []model.Block{model.ReasoningBlock(Truncate(text, MaxTextRunes))}
	default:
		return msg, false
	}
	if len(msg.Content) == 0 {
		return msg, false
	}
	return msg, true
}

func codexContent(raw json.RawMessage) []model.Block {
	if len(raw) == 0 {
		return nil
	}
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.String {
		if strings.TrimSpace(res.Str) == "" {
			return nil
		}
		return []model.Block{model.TextBlock(Truncate(res.Str, MaxTextRunes))}
	}
	if !res.IsArray() {
		return nil
	}
	var blocks []model.Block
	res.ForEach(func(_, item gjson.Result) bool {
		text := item.Get("text").String()
		if strings.TrimSpace(text) == "" {
			return true
		}
		switch item.Get("type").String() {
		case "input_text", "output_text", "text":
			blocks = append(blocks, model.TextBlock(Truncate(text, MaxTextRunes)))
		case "reasoning":
			blocks = append(blocks, model.ReasoningBlock(Truncate(text, MaxTextRunes)))
		}
		return true
	})
	return blocks
}

// codexArguments re-indents arguments that arrive as a serialized JSON
// string. Strings that do not parse are kept verbatim.
func codexArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	res := gjson.ParseBytes(raw)
	if res.Type != gjson.String {
		return stringOrPretty(raw)
	}
	if json.Valid([]byte(res.Str)) {
		return prettyJSON([]byte(res.Str))
	}
	return res.Str
}

func stringOrPretty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	res := gjson.ParseBytes(raw)
	switch res.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return res.Str
	default:
		return prettyJSON(raw)
	}
}

// reasoningText prefers the payload's text and falls back to the summary
// parts joined by newlines.
func reasoningText(p codexPayload) string {
	if t := joinTextParts(p.Text); t != "" {
		return t
	}
	return joinTextParts(p.Summary)
}

func joinTextParts(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.String {
		return res.Str
	}
	if !res.IsArray() {
		return ""
	}
	var parts []string
	res.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			parts = append(parts, item.Str)
		} else if t := item.Get("text"); t.Type == gjson.String {
			parts = append(parts, t.Str)
		}
		return true
	})
	return strings.Join(parts, "\n")
}
