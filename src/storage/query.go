package storage

import (
	"context"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Filter narrows list/search/stats queries. Zero values mean "no filter".
type Filter struct {
	Agent   string
	Project string
	Tag     string
	From    *time.Time
	To      *time.Time
	Limit   int
}

const defaultQueryLimit = 100

func (f *Filter) limit() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return defaultQueryLimit
}

// appendConditions adds the shared session filter clauses. prefix is the
// sessions table alias including the trailing dot, or "".
func (f *Filter) appendConditions(sb *strings.Builder, args *[]any, prefix string) {
	if f.Agent != "" {
		sb.WriteString(" AND " + prefix + "agent = ?")
		*args = append(*args, f.Agent)
	}
	if f.Project != "" {
		sb.WriteString(" AND " + prefix + "project_path = ?")
		*args = append(*args, f.Project)
	}
	if f.Tag != "" {
		sb.WriteString(" AND (',' || " + prefix + "tags || ',') LIKE ?")
		*args = append(*args, "%,"+f.Tag+",%")
	}
	// Timestamps are stored in UTC; bind in UTC so text comparison holds.
	if f.From != nil {
		sb.WriteString(" AND " + prefix + "started_at >= ?")
		*args = append(*args, f.From.UTC())
	}
	if f.To != nil {
		sb.WriteString(" AND " + prefix + "started_at <= ?")
		*args = append(*args, f.To.UTC())
	}
}

// ListSessions returns session summaries, most recent first. Sessions with
// equal timestamps order by id so pagination is stable.
func ListSessions(ctx context.Context, q sqlscan.Querier, filter Filter) ([]SessionRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, agent, external_id, project_path, project_name, summary, work_summary, status, started_at, ended_at, message_count, files_created, files_modified, files_deleted, tags
		FROM sessions WHERE 1=1`)
	var args []any
	filter.appendConditions(&sb, &args, "")
	sb.WriteString(" ORDER BY started_at DESC, id ASC LIMIT ?")
	args = append(args, filter.limit())

	var rows []SessionRow
	err := sqlscan.Select(ctx, q, &rows, sb.String(), args...)
	return rows, err
}

// SearchMessages runs a full-text query over message content, joined with
// session metadata. Results carry the bm25 rank (lower is better) and a
// snippet around the match; final ranking including recency happens in the
// engine.
func SearchMessages(ctx context.Context, q sqlscan.Querier, keyword string, filter Filter) ([]SearchResultRow, error) {
	match := buildMatchQuery(keyword)
	if match == "" {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT messages_fts.session_id AS session_id, s.agent AS agent, s.project_name AS project_name, s.project_path AS project_path,
		       messages_fts.role AS role, snippet(messages_fts, 2, '', '', '…', 12) AS snippet,
		       bm25(messages_fts) AS rank, s.started_at AS started_at, s.summary AS summary
		FROM messages_fts
		JOIN sessions s ON s.id = messages_fts.session_id
		WHERE messages_fts MATCH ?`)
	args := []any{match}
	filter.appendConditions(&sb, &args, "s.")
	sb.WriteString(" ORDER BY rank LIMIT ?")
	args = append(args, filter.limit())

	var rows []SearchResultRow
	err := sqlscan.Select(ctx, q, &rows, sb.String(), args...)
	return rows, err
}

// SearchSessionMeta runs the same full-text query over session metadata
// (summary, work summary, project name, tags).
func SearchSessionMeta(ctx context.Context, q sqlscan.Querier, keyword string, filter Filter) ([]SearchResultRow, error) {
	match := buildMatchQuery(keyword)
	if match == "" {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT sessions_fts.session_id AS session_id, s.agent AS agent, s.project_name AS project_name, s.project_path AS project_path,
		       '' AS role, snippet(sessions_fts, 1, '', '', '…', 12) AS snippet,
		       bm25(sessions_fts) AS rank, s.started_at AS started_at, s.summary AS summary
		FROM sessions_fts
		JOIN sessions s ON s.id = sessions_fts.session_id
		WHERE sessions_fts MATCH ?`)
	args := []any{match}
	filter.appendConditions(&sb, &args, "s.")
	sb.WriteString(" ORDER BY rank LIMIT ?")
	args = append(args, filter.limit())

	var rows []SearchResultRow
	err := sqlscan.Select(ctx, q, &rows, sb.String(), args...)
	return rows, err
}

// SearchByFile returns sessions whose tool calls touched a matching path.
func SearchByFile(ctx context.Context, q sqlscan.Querier, filePath string, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	var rows []SessionRow
	err := sqlscan.Select(ctx, q, &rows, `
		SELECT DISTINCT s.id, s.agent, s.external_id, s.project_path, s.project_name, s.summary, s.work_summary, s.status, s.started_at, s.ended_at, s.message_count, s.files_created, s.files_modified, s.files_deleted, s.tags
		FROM sessions s
		JOIN tool_calls tc ON tc.session_id = s.id
		WHERE tc.file_path LIKE ?
		ORDER BY s.started_at DESC, s.id ASC
		LIMIT ?`, "%"+filePath+"%", limit)
	return rows, err
}

// buildMatchQuery turns free-form user input into a safe FTS5 query: each
// token is quoted so FTS operators in the input cannot change query
// structure.
func buildMatchQuery(keyword string) string {
	fields := strings.Fields(keyword)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}
