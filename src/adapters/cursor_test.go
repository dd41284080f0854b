package adapters

import (
	"context"
	"testing"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorParseJSONArray(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/cursor/sessions/chat1.json"
	writeFile(t, fsys, path, `[
		{"role":"user","content":"rename the config package","timestamp":"2026-08-03T12:00:00Z"},
		{"role":"assistant","content":"Renamed and updated imports","timestamp":"2026-08-03T12:03:00Z"}
	]`)

	a := NewCursor(fsys, "/cursor")
	res, err := a.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Partial)

	s := res.Session
	assert.Equal(t, model.AgentCursor, s.Agent)
	assert.Equal(t, "chat1", s.ExternalID)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.StatusArchived, s.Status)
}

func TestCursorParseMalformedDocumentFails(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/cursor/sessions/broken.json"
	writeFile(t, fsys, path, `[{"role":"user","content":"oops"`)

	a := NewCursor(fsys, "/cursor")
	_, err := a.Parse(context.Background(), path)

	// A malformed whole-document export is a real failure, not an
	// in-progress file.
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
}

func TestCursorParseJSONLFallback(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/cursor/projects/chat2.jsonl"
	writeFile(t, fsys, path, `{"role":"user","content":"hello","timestamp":"2026-08-03T12:00:00Z"}`+"\n"+`not json`+"\n")

	a := NewCursor(fsys, "/cursor")
	res, err := a.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Equal(t, model.StatusActive, res.Session.Status)
	require.Len(t, res.Session.Messages, 1)
}

func TestCursorEnumerateBothDirs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/cursor/projects/a.json", "[]")
	writeFile(t, fsys, "/cursor/sessions/b.jsonl", "{}")

	a := NewCursor(fsys, "/cursor")
	cands, err := a.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}
