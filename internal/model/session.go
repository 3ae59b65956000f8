package model

import "time"

type Project struct {
	Source        Source    `json:"source" yaml:"source"`
	ID            string    `json:"id" yaml:"id"` // claude: encoded dir name, codex: cwd
	DisplayPath   string    `json:"display_path" yaml:"display_path"`
	ShortName     string    `json:"short_name" yaml:"short_name"`
	SessionCount  int       `json:"session_count" yaml:"session_count"`
	LastModified  time.Time `json:"last_modified" yaml:"last_modified"`
	ModelProvider string    `json:"model_provider,omitempty" yaml:"model_provider,omitempty"`
}

type Session struct {
	Source       Source    `json:"source" yaml:"source"`
	SessionID    string    `json:"session_id" yaml:"session_id"`
	FilePath     string    `json:"file_path" yaml:"file_path"`
	FirstPrompt  string    `json:"first_prompt,omitempty" yaml:"first_prompt,omitempty"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	Created      time.Time `json:"created" yaml:"created"`
	Modified     time.Time `json:"modified" yaml:"modified"`
	GitBranch    string    `json:"git_branch,omitempty" yaml:"git_branch,omitempty"`
	ProjectPath  string    `json:"project_path,omitempty" yaml:"project_path,omitempty"`

	// claude only
	IsSidechain *bool `json:"is_sidechain,omitempty" yaml:"is_sidechain,omitempty"`

	// codex only
	Cwd           string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	ModelProvider string `json:"model_provider,omitempty" yaml:"model_provider,omitempty"`
	CLIVersion    string `json:"cli_version,omitempty" yaml:"cli_version,omitempty"`
}

// SessionsIndex is the sessions-index.json file Claude Code keeps next to a
// project's session logs. It is maintained by the CLI, not by us.
type SessionsIndex struct {
	Version      *int                 `json:"version,omitempty"`
	Entries      []SessionsIndexEntry `json:"entries"`
	OriginalPath string               `json:"originalPath,omitempty"`
}

type SessionsIndexEntry struct {
	SessionID    string `json:"sessionId"`
	FullPath     string `json:"fullPath,omitempty"`
	FileMtime    *int64 `json:"fileMtime,omitempty"`
	FirstPrompt  string `json:"firstPrompt,omitempty"`
	MessageCount *int   `json:"messageCount,omitempty"`
	Created      string `json:"created,omitempty"`
	Modified     string `json:"modified,omitempty"`
	GitBranch    string `json:"gitBranch,omitempty"`
	ProjectPath  string `json:"projectPath,omitempty"`
	IsSidechain  *bool  `json:"isSidechain,omitempty"`
}
