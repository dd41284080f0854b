package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// UpsertIndexState records the fingerprint of a successfully parsed source
// file. Call it in the same transaction as ReplaceSession so a crash cannot
// leave the fingerprint claiming content that was never committed.
func UpsertIndexState(ctx context.Context, q Execer, state *IndexStateRow) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO index_state (file_path, agent, size, mtime_ns, content_hash, partial, parsed_at, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			agent = excluded.agent,
			size = excluded.size,
			mtime_ns = excluded.mtime_ns,
			content_hash = excluded.content_hash,
			partial = excluded.partial,
			parsed_at = excluded.parsed_at,
			session_id = excluded.session_id`,
		state.FilePath, state.Agent, state.Size, state.MtimeNS,
		state.ContentHash, state.Partial, state.ParsedAt, state.SessionID,
	)
	if err != nil {
		return fmt.Errorf("upsert index state: %w", err)
	}
	return nil
}

// GetIndexState returns the tracked state for one file, or nil if the file
// has never been indexed.
func GetIndexState(ctx context.Context, q sqlscan.Querier, filePath string) (*IndexStateRow, error) {
	var row IndexStateRow
	err := sqlscan.Get(ctx, q, &row, `
		SELECT file_path, agent, size, mtime_ns, content_hash, partial, parsed_at, session_id
		FROM index_state WHERE file_path = ?`, filePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetIndexStates returns all tracked files, optionally limited to one agent.
func GetIndexStates(ctx context.Context, q sqlscan.Querier, agent string) ([]IndexStateRow, error) {
	query := `SELECT file_path, agent, size, mtime_ns, content_hash, partial, parsed_at, session_id FROM index_state`
	var args []any
	if agent != "" {
		query += ` WHERE agent = ?`
		args = append(args, agent)
	}
	query += ` ORDER BY file_path`

	var rows []IndexStateRow
	err := sqlscan.Select(ctx, q, &rows, query, args...)
	return rows, err
}

// DeleteIndexState untracks one file.
func DeleteIndexState(ctx context.Context, q Execer, filePath string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM index_state WHERE file_path = ?`, filePath)
	return err
}
