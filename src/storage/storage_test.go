package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}

func authSession(t *testing.T) *model.Session {
	started := ts(t, "2026-08-01T10:00:00Z")
	ended := ts(t, "2026-08-01T10:05:00Z")
	return &model.Session{
		Agent:       model.AgentClaudeCode,
		ExternalID:  "s1",
		ProjectPath: "/home/me/webapp",
		ProjectName: "webapp",
		Summary:     "Fix the authentication bug",
		Status:      model.StatusArchived,
		StartedAt:   started,
		EndedAt:     ended,
		Messages: []model.Message{
			{Seq: 0, Role: model.RoleUser, Content: "Fix the authentication bug in login", Timestamp: started},
			{Seq: 1, Role: model.RoleAssistant, Content: "Fixed the token check in auth.go", Timestamp: ended, FilesChanged: []string{"/home/me/webapp/auth.go"}},
		},
		ToolCalls: []model.ToolCall{
			{Seq: 0, Name: "Edit", FilePath: "/home/me/webapp/auth.go", Summary: `{"file_path":"/home/me/webapp/auth.go"}`, Timestamp: ended},
		},
	}
}

func replace(t *testing.T, db *sql.DB, s *model.Session) {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, ReplaceSession(context.Background(), tx, s))
	require.NoError(t, tx.Commit())
}

func TestReplaceSessionRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	row, err := GetSession(ctx, db, "claude-code:s1")
	require.NoError(t, err)
	assert.Equal(t, "claude-code", row.Agent)
	assert.Equal(t, "s1", row.ExternalID)
	assert.Equal(t, int64(2), row.MessageCount)
	assert.Equal(t, int64(1), row.FilesModified)

	messages, err := GetMessages(ctx, db, row.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(0), messages[0].Seq)
	assert.Equal(t, []string{"/home/me/webapp/auth.go"}, []string(messages[1].FilesChanged))

	toolCalls, err := GetToolCalls(ctx, db, row.ID)
	require.NoError(t, err)
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "Edit", toolCalls[0].ToolName)
}

func TestReplaceSessionIsIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	replace(t, db, authSession(t))
	replace(t, db, authSession(t))

	sessions, err := ListSessions(ctx, db, Filter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	messages, err := GetMessages(ctx, db, sessions[0].ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	// The text index holds exactly one entry per message too.
	results, err := SearchMessages(ctx, db, "authentication", Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestReplaceSessionReplacesNotAppends(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	shrunk := authSession(t)
	shrunk.Messages = shrunk.Messages[:1]
	shrunk.ToolCalls = nil
	replace(t, db, shrunk)

	row, err := GetSession(ctx, db, "claude-code:s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.MessageCount)

	messages, err := GetMessages(ctx, db, row.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	toolCalls, err := GetToolCalls(ctx, db, row.ID)
	require.NoError(t, err)
	assert.Empty(t, toolCalls)

	// Content removed from the source is no longer searchable.
	results, err := SearchMessages(ctx, db, "token", Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceSessionPreservesTags(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, UpdateTags(ctx, tx, "claude-code:s1", []string{"important", "auth"}))
	require.NoError(t, tx.Commit())

	replace(t, db, authSession(t))

	tags, err := GetTags(ctx, db, "claude-code:s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"important", "auth"}, tags)

	// Tag terms stay searchable after re-ingestion.
	results, err := SearchSessionMeta(ctx, db, "important", Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "claude-code:s1", results[0].SessionID)
}

func TestReplaceSessionMarksGrownSessionResumed(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	grown := authSession(t)
	grown.Messages = append(grown.Messages, model.Message{
		Seq: 2, Role: model.RoleUser, Content: "one more thing",
	})
	replace(t, db, grown)

	row, err := GetSession(ctx, db, "claude-code:s1")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusResumed), row.Status)
}

func TestGetSessionNotFound(t *testing.T) {
	db := testDB(t)
	_, err := GetSession(context.Background(), db, "codex:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	other := authSession(t)
	other.ExternalID = "s2"
	other.Messages = []model.Message{
		{Seq: 0, Role: model.RoleUser, Content: "refactor the database layer"},
	}
	other.ToolCalls = nil
	replace(t, db, other)

	results, err := SearchMessages(ctx, db, "authentication", Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "claude-code:s1", results[0].SessionID)
	assert.NotEmpty(t, results[0].Snippet)

	none, err := SearchMessages(ctx, db, "kubernetes", Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchQuotingNeutralizesOperators(t *testing.T) {
	db := testDB(t)
	replace(t, db, authSession(t))

	// FTS operators in user input must not change query structure.
	for _, q := range []string{`auth AND`, `"broken`, `NEAR(x y)`} {
		_, err := SearchMessages(context.Background(), db, q, Filter{})
		assert.NoError(t, err, q)
	}
}

func TestSearchByFile(t *testing.T) {
	db := testDB(t)
	replace(t, db, authSession(t))

	rows, err := SearchByFile(context.Background(), db, "auth.go", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "claude-code:s1", rows[0].ID)
}

func TestListSessionsFilters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := authSession(t)
	recentStart := now.Add(-6 * 24 * time.Hour)
	recent.StartedAt = &recentStart
	replace(t, db, recent)

	old := authSession(t)
	old.ExternalID = "old"
	old.Agent = model.AgentCodex
	oldStart := now.Add(-8 * 24 * time.Hour)
	old.StartedAt = &oldStart
	replace(t, db, old)

	// Window boundary: 7d keeps the 6-day-old session, drops the 8-day-old.
	from := now.Add(-7 * 24 * time.Hour)
	rows, err := ListSessions(ctx, db, Filter{From: &from})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "claude-code:s1", rows[0].ID)

	rows, err = ListSessions(ctx, db, Filter{Agent: "codex"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "codex:old", rows[0].ID)

	rows, err = ListSessions(ctx, db, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Newest first.
	assert.Equal(t, "claude-code:s1", rows[0].ID)
}

func TestListSessionsTagFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, UpdateTags(ctx, tx, "claude-code:s1", []string{"auth"}))
	require.NoError(t, tx.Commit())

	rows, err := ListSessions(ctx, db, Filter{Tag: "auth"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = ListSessions(ctx, db, Filter{Tag: "au"})
	require.NoError(t, err)
	assert.Empty(t, rows, "tag match is exact, not substring")
}

func TestUpdateTagsUnknownSession(t *testing.T) {
	db := testDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()
	err = UpdateTags(context.Background(), tx, "codex:ghost", []string{"x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))

	other := authSession(t)
	other.ExternalID = "s2"
	other.Agent = model.AgentCodex
	other.ToolCalls = nil
	replace(t, db, other)

	stats, err := GetStats(ctx, db, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(4), stats.TotalMessages)
	assert.Equal(t, int64(1), stats.TotalToolCalls)
	assert.Equal(t, int64(1), stats.FilesModified)
	require.Len(t, stats.SessionsByAgent, 2)
	require.Len(t, stats.MostModifiedFiles, 1)
	assert.Equal(t, "/home/me/webapp/auth.go", stats.MostModifiedFiles[0].Key)

	filtered, err := GetStats(ctx, db, Filter{Agent: "codex"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), filtered.TotalSessions)
	assert.Equal(t, int64(2), filtered.TotalMessages)
	assert.Equal(t, int64(0), filtered.TotalToolCalls)
}

func TestIndexStateRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	state := &IndexStateRow{
		FilePath:    "/data/projects/p/s1.jsonl",
		Agent:       "claude-code",
		Size:        123,
		MtimeNS:     456789,
		ContentHash: "abc",
		Partial:     true,
		ParsedAt:    time.Now().UTC(),
		SessionID:   "claude-code:s1",
	}
	require.NoError(t, UpsertIndexState(ctx, db, state))

	got, err := GetIndexState(ctx, db, state.FilePath)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.Size, got.Size)
	assert.True(t, got.Partial)

	state.Partial = false
	state.Size = 200
	require.NoError(t, UpsertIndexState(ctx, db, state))

	all, err := GetIndexStates(ctx, db, "claude-code")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(200), all[0].Size)
	assert.False(t, all[0].Partial)

	missing, err := GetIndexState(ctx, db, "/untracked")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, DeleteIndexState(ctx, db, state.FilePath))
	gone, err := GetIndexState(ctx, db, state.FilePath)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCleanSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := authSession(t)
	oldStart := now.Add(-90 * 24 * time.Hour)
	old.StartedAt = &oldStart
	replace(t, db, old)
	require.NoError(t, UpsertIndexState(ctx, db, &IndexStateRow{
		FilePath: "/f/old.jsonl", Agent: "claude-code", ParsedAt: now, SessionID: old.ID(),
	}))

	fresh := authSession(t)
	fresh.ExternalID = "fresh"
	freshStart := now.Add(-1 * 24 * time.Hour)
	fresh.StartedAt = &freshStart
	replace(t, db, fresh)

	tx, err := db.Begin()
	require.NoError(t, err)
	ids, err := CleanSessions(ctx, tx, now.Add(-30*24*time.Hour), "")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, []string{"claude-code:s1"}, ids)

	_, err = GetSession(ctx, db, "claude-code:s1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = GetSession(ctx, db, "claude-code:fresh")
	assert.NoError(t, err)

	state, err := GetIndexState(ctx, db, "/f/old.jsonl")
	require.NoError(t, err)
	assert.Nil(t, state, "clean drops change-detection state too")
}

func TestClearAgent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))
	other := authSession(t)
	other.Agent = model.AgentCodex
	other.ExternalID = "c1"
	replace(t, db, other)
	require.NoError(t, UpsertIndexState(ctx, db, &IndexStateRow{
		FilePath: "/f/a.jsonl", Agent: "claude-code", ParsedAt: time.Now(), SessionID: "claude-code:s1",
	}))
	require.NoError(t, UpsertIndexState(ctx, db, &IndexStateRow{
		FilePath: "/f/c.jsonl", Agent: "codex", ParsedAt: time.Now(), SessionID: "codex:c1",
	}))

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, ClearAgent(ctx, tx, "codex"))
	require.NoError(t, tx.Commit())

	_, err = GetSession(ctx, db, "codex:c1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = GetSession(ctx, db, "claude-code:s1")
	require.NoError(t, err)

	states, err := GetIndexStates(ctx, db, "")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "claude-code", states[0].Agent)

	// Index entries for the cleared agent are gone too.
	rows, err := SearchMessages(ctx, db, "authentication", Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "claude-code:s1", rows[0].SessionID)
}

func TestClearAll(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	replace(t, db, authSession(t))
	require.NoError(t, UpsertIndexState(ctx, db, &IndexStateRow{
		FilePath: "/f/a.jsonl", Agent: "claude-code", ParsedAt: time.Now(), SessionID: "claude-code:s1",
	}))

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, ClearAll(ctx, tx))
	require.NoError(t, tx.Commit())

	rows, err := ListSessions(ctx, db, Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	states, err := GetIndexStates(ctx, db, "")
	require.NoError(t, err)
	assert.Empty(t, states)
}
