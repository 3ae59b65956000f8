package model

// BlockType tags the variant held by a Block.
type BlockType string

const (
	BlockText               BlockType = "text"
	BlockThinking           BlockType = "thinking"
	BlockToolUse            BlockType = "tool_use"
	BlockToolResult         BlockType = "tool_result"
	BlockReasoning          BlockType = "reasoning"
	BlockFunctionCall       BlockType = "function_call"
	BlockFunctionCallOutput BlockType = "function_call_output"
)

// Block is one normalized content fragment. Which fields are set depends on
// Type:
//
//	text, thinking, reasoning   Text
//	tool_use                    ID, Name, Input (pretty-printed JSON)
//	tool_result                 ID (tool_use_id), Output, IsError
//	function_call               ID (call_id), Name, Input (arguments)
//	function_call_output        ID (call_id), Output
type Block struct {
	Type    BlockType `json:"type" yaml:"type"`
	Text    string    `json:"text,omitempty" yaml:"text,omitempty"`
	ID      string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Input   string    `json:"input,omitempty" yaml:"input,omitempty"`
	Output  string    `json:"output,omitempty" yaml:"output,omitempty"`
	IsError bool      `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

func ThinkingBlock(text string) Block {
	return Block{Type: BlockThinking, Text: text}
}

func ReasoningBlock(text string) Block {
	return Block{Type: BlockReasoning, Text: text}
}

func ToolUseBlock(id, name, input string) Block {
	return Block{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Type: BlockToolResult, ID: toolUseID, Output: content, IsError: isError}
}

func FunctionCallBlock(name, arguments, callID string) Block {
	return Block{Type: BlockFunctionCall, ID: callID, Name: name, Input: arguments}
}

func FunctionCallOutputBlock(callID, output string) Block {
	return Block{Type: BlockFunctionCallOutput, ID: callID, Output: output}
}

// Body returns the text a reader (or a search) sees for the block.
func (b Block) Body() string {
	switch b.Type {
	case BlockToolUse, BlockFunctionCall:
		return b.Input
	case BlockToolResult, BlockFunctionCallOutput:
		return b.Output
	default:
		return b.Text
	}
}

// Message is one display-ready message. Content is never empty.
type Message struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Role      string  `json:"role" yaml:"role"`
	Timestamp string  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Model     string  `json:"model,omitempty" yaml:"model,omitempty"`
	Content   []Block `json:"content" yaml:"content"`
	Line      int     `json:"line" yaml:"line"` // 1-based line in the session file
}

// Page is one window of a materialized session.
type Page struct {
	Messages []Message `json:"messages" yaml:"messages"`
	Offset   int       `json:"offset" yaml:"offset"` // session index of Messages[0]
	Total    int       `json:"total" yaml:"total"`
	Page     int       `json:"page" yaml:"page"`
	PageSize int       `json:"page_size" yaml:"page_size"`
	HasMore  bool      `json:"has_more" yaml:"has_more"`
}
