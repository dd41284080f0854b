package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// UpdateTags replaces a session's tag set. Tags are stored as a comma-joined
// string on the session row and mirrored into the session metadata index so
// tag terms are searchable.
func UpdateTags(ctx context.Context, q ExecQuerier, sessionID string, tags []string) error {
	cleaned := normalizeTags(tags)
	joined := strings.Join(cleaned, ",")

	res, err := q.ExecContext(ctx, `UPDATE sessions SET tags = ? WHERE id = ?`, joined, sessionID)
	if err != nil {
		return fmt.Errorf("update tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tags: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	_, err = q.ExecContext(ctx, `UPDATE sessions_fts SET tags = ? WHERE session_id = ?`,
		strings.Join(cleaned, " "), sessionID)
	if err != nil {
		return fmt.Errorf("update tag index: %w", err)
	}
	return nil
}

// GetTags returns a session's tags, or ErrNotFound.
func GetTags(ctx context.Context, q sqlscan.Querier, sessionID string) ([]string, error) {
	var row struct {
		Tags string `db:"tags"`
	}
	err := sqlscan.Get(ctx, q, &row, `SELECT tags FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return splitTags(row.Tags), nil
}

// CleanSessions deletes sessions that started before the cutoff, optionally
// limited to one agent, and returns their ids. Sessions with no recorded
// start time are never age-pruned.
func CleanSessions(ctx context.Context, q ExecQuerier, before time.Time, agent string) ([]string, error) {
	query := `SELECT id FROM sessions WHERE started_at IS NOT NULL AND started_at < ?`
	args := []any{before.UTC()}
	if agent != "" {
		query += ` AND agent = ?`
		args = append(args, agent)
	}

	var ids []string
	if err := sqlscan.Select(ctx, q, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select old sessions: %w", err)
	}

	for _, id := range ids {
		if err := DeleteSession(ctx, q, id); err != nil {
			return nil, err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM index_state WHERE session_id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete index state: %w", err)
		}
	}
	return ids, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
