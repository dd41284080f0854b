package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Agent identifies which coding agent produced a session.
type Agent string

const (
	AgentClaudeCode Agent = "claude-code"
	AgentCodex      Agent = "codex"
	AgentCursor     Agent = "cursor"
)

// ParseAgent resolves user-supplied agent names, accepting common aliases.
func ParseAgent(s string) (Agent, bool) {
	switch strings.ToLower(s) {
	case "claude-code", "claude_code", "claudecode", "claude":
		return AgentClaudeCode, true
	case "codex":
		return AgentCodex, true
	case "cursor":
		return AgentCursor, true
	}
	return "", false
}

// DisplayName returns a human readable agent name.
func (a Agent) DisplayName() string {
	switch a {
	case AgentClaudeCode:
		return "Claude Code"
	case AgentCodex:
		return "Codex"
	case AgentCursor:
		return "Cursor"
	}
	return string(a)
}

func (a Agent) String() string { return string(a) }

// Role is the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a source role string to a canonical role. Anything that is
// neither user nor assistant (tool output, meta lines) becomes system.
func ParseRole(s string) Role {
	switch strings.ToLower(s) {
	case "user":
		return RoleUser
	case "assistant":
		return RoleAssistant
	}
	return RoleSystem
}

// SessionStatus tracks the lifecycle of an ingested session.
type SessionStatus string

const (
	// StatusActive means the source file looked in-progress on last parse.
	StatusActive SessionStatus = "active"
	// StatusResumed means a re-ingest grew a previously indexed session.
	StatusResumed SessionStatus = "resumed"
	// StatusArchived is a fully parsed, stable session.
	StatusArchived SessionStatus = "archived"
)

// Session is the canonical representation of one agent interaction. Adapters
// produce it; the store persists it wholesale.
type Session struct {
	Agent       Agent
	ExternalID  string
	ProjectPath string
	ProjectName string
	Summary     string
	WorkSummary string
	Status      SessionStatus
	StartedAt   *time.Time
	EndedAt     *time.Time
	Messages    []Message
	ToolCalls   []ToolCall
	Tags        []string
}

// ID returns the canonical session identifier, unique across agents.
func (s *Session) ID() string {
	return SessionID(s.Agent, s.ExternalID)
}

// SessionID builds the canonical "<agent>:<external_id>" identifier.
func SessionID(agent Agent, externalID string) string {
	return fmt.Sprintf("%s:%s", agent, externalID)
}

// SplitSessionID splits a canonical id back into agent and external id. The
// second return is the raw id unchanged when there is no agent prefix.
func SplitSessionID(id string) (Agent, string) {
	if i := strings.Index(id, ":"); i > 0 {
		if a, ok := ParseAgent(id[:i]); ok {
			return a, id[i+1:]
		}
	}
	return "", id
}

// Message is one turn within a session. Seq follows source file order and is
// strictly increasing even when timestamps are absent or equal.
type Message struct {
	Seq          int
	Role         Role
	Content      string
	Timestamp    *time.Time
	FilesChanged []string
}

// ToolCall is a side effect recorded within a session: a file edit, a shell
// invocation, or any other tool invocation the agent logged. Unrecognized
// payload shapes keep an opaque Summary so they stay searchable.
type ToolCall struct {
	Seq       int
	Name      string
	FilePath  string
	Summary   string
	Timestamp *time.Time
}

func (s *Session) MessageCount() int { return len(s.Messages) }

// FilesCreated counts tool calls that created files.
func (s *Session) FilesCreated() int {
	return s.countTools("Write", "create_file")
}

// FilesModified counts tool calls that edited files.
func (s *Session) FilesModified() int {
	return s.countTools("Edit", "edit_file")
}

// FilesDeleted counts tool calls that deleted files.
func (s *Session) FilesDeleted() int {
	return s.countTools("delete_file")
}

func (s *Session) countTools(names ...string) int {
	n := 0
	for _, tc := range s.ToolCalls {
		for _, name := range names {
			if tc.Name == name {
				n++
			}
		}
	}
	return n
}

// FirstUserMessage returns the content of the first user turn, or "".
func (s *Session) FirstUserMessage() string {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// LastAssistantMessage returns the last non-empty assistant turn, or "".
func (s *Session) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant && s.Messages[i].Content != "" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// ChangedFile pairs a shortened path with a +/~/- change marker.
type ChangedFile struct {
	Path   string
	Marker string
}

// ChangedFilePaths lists distinct files touched by tool calls, each with a
// marker for created (+), modified (~) or deleted (-).
func (s *Session) ChangedFilePaths() []ChangedFile {
	seen := make(map[string]bool)
	var files []ChangedFile
	for _, tc := range s.ToolCalls {
		if tc.FilePath == "" {
			continue
		}
		short := shortenPath(tc.FilePath)
		if seen[short] {
			continue
		}
		seen[short] = true
		marker := "~"
		switch tc.Name {
		case "Write", "create_file":
			marker = "+"
		case "delete_file":
			marker = "-"
		}
		files = append(files, ChangedFile{Path: short, Marker: marker})
	}
	return files
}

// shortenPath keeps the last two path components.
func shortenPath(path string) string {
	dir, base := filepath.Split(path)
	parent := filepath.Base(strings.TrimSuffix(dir, "/"))
	if parent == "." || parent == "/" || parent == "" {
		return base
	}
	return parent + "/" + base
}
