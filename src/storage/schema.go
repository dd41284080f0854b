package storage

import (
	"strings"
	"time"
)

// SessionRow is a persisted session. ID is "<agent>:<external_id>" and
// (agent, external_id) is unique, so re-ingesting the same source session
// replaces rather than duplicates it.
type SessionRow struct {
	ID            string     `db:"id"`
	Agent         string     `db:"agent"`
	ExternalID    string     `db:"external_id"`
	ProjectPath   string     `db:"project_path"`
	ProjectName   string     `db:"project_name"`
	Summary       string     `db:"summary"`
	WorkSummary   string     `db:"work_summary"`
	Status        string     `db:"status"`
	StartedAt     *time.Time `db:"started_at"`
	EndedAt       *time.Time `db:"ended_at"`
	MessageCount  int64      `db:"message_count"`
	FilesCreated  int64      `db:"files_created"`
	FilesModified int64      `db:"files_modified"`
	FilesDeleted  int64      `db:"files_deleted"`
	Tags          string     `db:"tags"`
}

// TagList splits the comma-joined tags column.
func (s *SessionRow) TagList() []string {
	if s.Tags == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s.Tags, ",") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// MessageRow is one turn of a session. Seq mirrors source file order.
type MessageRow struct {
	ID           int64           `db:"id"`
	SessionID    string          `db:"session_id"`
	Seq          int64           `db:"seq"`
	Role         string          `db:"role"`
	Content      string          `db:"content"`
	Timestamp    *time.Time      `db:"timestamp"`
	FilesChanged JSONStringArray `db:"files_changed"`
}

// ToolCallRow is one recorded side effect.
type ToolCallRow struct {
	ID        int64      `db:"id"`
	SessionID string     `db:"session_id"`
	Seq       int64      `db:"seq"`
	ToolName  string     `db:"tool_name"`
	FilePath  string     `db:"file_path"`
	Summary   string     `db:"summary"`
	Timestamp *time.Time `db:"timestamp"`
}

// IndexStateRow tracks one source file for change detection. It lives in
// the same database as the sessions it produced so a file's re-parse and
// its bookkeeping commit atomically.
type IndexStateRow struct {
	FilePath    string    `db:"file_path"`
	Agent       string    `db:"agent"`
	Size        int64     `db:"size"`
	MtimeNS     int64     `db:"mtime_ns"`
	ContentHash string    `db:"content_hash"`
	Partial     bool      `db:"partial"`
	ParsedAt    time.Time `db:"parsed_at"`
	SessionID   string    `db:"session_id"`
}

// SearchResultRow is one full-text match with enough context to render a
// preview without a second query.
type SearchResultRow struct {
	SessionID   string     `db:"session_id"`
	Agent       string     `db:"agent"`
	ProjectName string     `db:"project_name"`
	ProjectPath string     `db:"project_path"`
	Role        string     `db:"role"`
	Snippet     string     `db:"snippet"`
	Rank        float64    `db:"rank"`
	StartedAt   *time.Time `db:"started_at"`
	Summary     string     `db:"summary"`
}
