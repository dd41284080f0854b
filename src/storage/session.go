package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/georgysavva/scany/v2/sqlscan"
)

// ReplaceSession writes one parsed session and its full set of messages and
// tool calls, replacing whatever was stored before. Children are deleted and
// reinserted rather than diffed so the store always converges to exactly the
// current source content. Both FTS tables are updated in the same call; run
// it inside the per-file transaction.
//
// User-assigned tags survive replacement: they are owned by the user, not
// the source file.
func ReplaceSession(ctx context.Context, q ExecQuerier, session *model.Session) error {
	id := session.ID()

	var prev struct {
		MessageCount int64  `db:"message_count"`
		Tags         string `db:"tags"`
	}
	exists := true
	err := sqlscan.Get(ctx, q, &prev, `SELECT message_count, tags FROM sessions WHERE id = ?`, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check existing session: %w", err)
		}
		exists = false
	}

	status := session.Status
	if exists && status == model.StatusArchived && int64(len(session.Messages)) > prev.MessageCount {
		status = model.StatusResumed
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO sessions (id, agent, external_id, project_path, project_name, summary, work_summary, status, started_at, ended_at, message_count, files_created, files_modified, files_deleted, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '')
		ON CONFLICT(id) DO UPDATE SET
			project_path = excluded.project_path,
			project_name = excluded.project_name,
			summary = excluded.summary,
			work_summary = excluded.work_summary,
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			message_count = excluded.message_count,
			files_created = excluded.files_created,
			files_modified = excluded.files_modified,
			files_deleted = excluded.files_deleted`,
		id, session.Agent.String(), session.ExternalID,
		session.ProjectPath, session.ProjectName,
		session.Summary, session.WorkSummary, string(status),
		session.StartedAt, session.EndedAt,
		len(session.Messages), session.FilesCreated(), session.FilesModified(), session.FilesDeleted(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	// Replace children: delete all, then insert the current set.
	if _, err := q.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM tool_calls WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete tool calls: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM messages_fts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete message index entries: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions_fts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session index entry: %w", err)
	}

	for _, msg := range session.Messages {
		_, err := q.ExecContext(ctx, `
			INSERT INTO messages (session_id, seq, role, content, timestamp, files_changed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, msg.Seq, string(msg.Role), msg.Content, msg.Timestamp, JSONStringArray(msg.FilesChanged),
		)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", msg.Seq, err)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO messages_fts (session_id, role, content) VALUES (?, ?, ?)`,
			id, string(msg.Role), msg.Content,
		)
		if err != nil {
			return fmt.Errorf("index message %d: %w", msg.Seq, err)
		}
	}

	for _, tc := range session.ToolCalls {
		_, err := q.ExecContext(ctx, `
			INSERT INTO tool_calls (session_id, seq, tool_name, file_path, summary, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, tc.Seq, tc.Name, tc.FilePath, tc.Summary, tc.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert tool call %d: %w", tc.Seq, err)
		}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO sessions_fts (session_id, summary, work_summary, project_name, tags)
		VALUES (?, ?, ?, ?, ?)`,
		id, session.Summary, session.WorkSummary, session.ProjectName,
		strings.ReplaceAll(prev.Tags, ",", " "),
	)
	if err != nil {
		return fmt.Errorf("index session: %w", err)
	}

	return nil
}

// GetSession returns one session row, or ErrNotFound.
func GetSession(ctx context.Context, q sqlscan.Querier, id string) (*SessionRow, error) {
	var row SessionRow
	err := sqlscan.Get(ctx, q, &row, `
		SELECT id, agent, external_id, project_path, project_name, summary, work_summary, status, started_at, ended_at, message_count, files_created, files_modified, files_deleted, tags
		FROM sessions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// GetMessages returns a session's messages in source order.
func GetMessages(ctx context.Context, q sqlscan.Querier, sessionID string) ([]MessageRow, error) {
	var rows []MessageRow
	err := sqlscan.Select(ctx, q, &rows, `
		SELECT id, session_id, seq, role, content, timestamp, files_changed
		FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	return rows, err
}

// GetToolCalls returns a session's tool calls in source order.
func GetToolCalls(ctx context.Context, q sqlscan.Querier, sessionID string) ([]ToolCallRow, error) {
	var rows []ToolCallRow
	err := sqlscan.Select(ctx, q, &rows, `
		SELECT id, session_id, seq, tool_name, file_path, summary, timestamp
		FROM tool_calls WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	return rows, err
}

// DeleteSession removes a session, its children and its index entries.
func DeleteSession(ctx context.Context, q Execer, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM messages_fts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete message index entries: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions_fts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session index entry: %w", err)
	}
	// Messages and tool calls cascade.
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ClearAgent drops one agent's sessions and change-detection state, leaving
// other agents' data and tags untouched. Used by scoped rebuilds.
func ClearAgent(ctx context.Context, q Execer, agent string) error {
	for _, stmt := range []string{
		`DELETE FROM messages_fts WHERE session_id IN (SELECT id FROM sessions WHERE agent = ?)`,
		`DELETE FROM sessions_fts WHERE session_id IN (SELECT id FROM sessions WHERE agent = ?)`,
		// Messages and tool calls cascade.
		`DELETE FROM sessions WHERE agent = ?`,
		`DELETE FROM index_state WHERE agent = ?`,
	} {
		if _, err := q.ExecContext(ctx, stmt, agent); err != nil {
			return fmt.Errorf("clear agent: %w", err)
		}
	}
	return nil
}

// ClearAll drops all indexed content, including change-detection state.
// Used by full rebuilds.
func ClearAll(ctx context.Context, q Execer) error {
	for _, stmt := range []string{
		`DELETE FROM messages_fts`,
		`DELETE FROM sessions_fts`,
		`DELETE FROM tool_calls`,
		`DELETE FROM messages`,
		`DELETE FROM sessions`,
		`DELETE FROM index_state`,
	} {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}
	return nil
}
