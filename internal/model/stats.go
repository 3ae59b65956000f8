package model

// UsageSummary has the same shape for both sources.
type UsageSummary struct {
	TotalInputTokens  uint64            `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens uint64            `json:"total_output_tokens" yaml:"total_output_tokens"`
	TotalTokens       uint64            `json:"total_tokens" yaml:"total_tokens"`
	TokensByModel     map[string]uint64 `json:"tokens_by_model" yaml:"tokens_by_model"`
	DailyTokens       []DailyTokens     `json:"daily_tokens" yaml:"daily_tokens"`
	SessionCount      uint64            `json:"session_count" yaml:"session_count"`
	MessageCount      uint64            `json:"message_count" yaml:"message_count"`
}

type DailyTokens struct {
	Date         string `json:"date" yaml:"date"` // YYYY-MM-DD
	InputTokens  uint64 `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens uint64 `json:"output_tokens" yaml:"output_tokens"`
	TotalTokens  uint64 `json:"total_tokens" yaml:"total_tokens"`
}
