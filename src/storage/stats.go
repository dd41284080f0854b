package storage

import (
	"context"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// CountBucket is one aggregate group, e.g. sessions per agent.
type CountBucket struct {
	Key   string `db:"key"`
	Count int64  `db:"count"`
}

// Stats are the aggregates report generation is built from. Everything here
// derives from store content alone.
type Stats struct {
	TotalSessions      int64
	TotalMessages      int64
	TotalToolCalls     int64
	SessionsByAgent    []CountBucket
	SessionsByProject  []CountBucket
	FilesCreated       int64
	FilesModified      int64
	FilesDeleted       int64
	MostModifiedFiles  []CountBucket
	EarliestSession    *time.Time
	LatestSession      *time.Time
}

// GetStats computes aggregate counts over sessions matching the filter.
func GetStats(ctx context.Context, q sqlscan.Querier, filter Filter) (*Stats, error) {
	var where strings.Builder
	where.WriteString("WHERE 1=1")
	var args []any
	filter.appendConditions(&where, &args, "")
	cond := where.String()

	// Same clauses against the aliased sessions table for joined queries.
	var aliased strings.Builder
	aliased.WriteString("WHERE 1=1")
	var aliasedArgs []any
	filter.appendConditions(&aliased, &aliasedArgs, "s.")
	condS := aliased.String()

	stats := &Stats{}

	var totals struct {
		Sessions      int64      `db:"sessions"`
		FilesCreated  int64      `db:"files_created"`
		FilesModified int64      `db:"files_modified"`
		FilesDeleted  int64      `db:"files_deleted"`
		Earliest      *time.Time `db:"earliest"`
		Latest        *time.Time `db:"latest"`
	}
	err := sqlscan.Get(ctx, q, &totals, `
		SELECT COUNT(*) AS sessions,
		       COALESCE(SUM(files_created), 0) AS files_created,
		       COALESCE(SUM(files_modified), 0) AS files_modified,
		       COALESCE(SUM(files_deleted), 0) AS files_deleted,
		       MIN(started_at) AS earliest,
		       MAX(ended_at) AS latest
		FROM sessions `+cond, args...)
	if err != nil {
		return nil, err
	}
	stats.TotalSessions = totals.Sessions
	stats.FilesCreated = totals.FilesCreated
	stats.FilesModified = totals.FilesModified
	stats.FilesDeleted = totals.FilesDeleted
	stats.EarliestSession = totals.Earliest
	stats.LatestSession = totals.Latest

	var msgCount struct {
		Count int64 `db:"count"`
	}
	err = sqlscan.Get(ctx, q, &msgCount, `
		SELECT COUNT(*) AS count FROM messages m
		JOIN sessions s ON s.id = m.session_id `+condS, aliasedArgs...)
	if err != nil {
		return nil, err
	}
	stats.TotalMessages = msgCount.Count

	var tcCount struct {
		Count int64 `db:"count"`
	}
	err = sqlscan.Get(ctx, q, &tcCount, `
		SELECT COUNT(*) AS count FROM tool_calls tc
		JOIN sessions s ON s.id = tc.session_id `+condS, aliasedArgs...)
	if err != nil {
		return nil, err
	}
	stats.TotalToolCalls = tcCount.Count

	err = sqlscan.Select(ctx, q, &stats.SessionsByAgent, `
		SELECT agent AS key, COUNT(*) AS count FROM sessions `+cond+`
		GROUP BY agent ORDER BY count DESC`, args...)
	if err != nil {
		return nil, err
	}

	err = sqlscan.Select(ctx, q, &stats.SessionsByProject, `
		SELECT COALESCE(NULLIF(project_name, ''), 'unknown') AS key, COUNT(*) AS count FROM sessions `+cond+`
		GROUP BY project_name ORDER BY count DESC`, args...)
	if err != nil {
		return nil, err
	}

	err = sqlscan.Select(ctx, q, &stats.MostModifiedFiles, `
		SELECT tc.file_path AS key, COUNT(*) AS count FROM tool_calls tc
		JOIN sessions s ON s.id = tc.session_id `+condS+`
		AND tc.file_path != ''
		GROUP BY tc.file_path ORDER BY count DESC LIMIT 10`, aliasedArgs...)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
