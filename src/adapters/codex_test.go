package adapters

import (
	"context"
	"testing"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const codexSession = `{"role":"user","content":"add retries to the fetcher","cwd":"/home/me/fetcher","timestamp":"2026-08-02T09:00:00Z"}
{"role":"assistant","content":"Added exponential backoff","timestamp":"2026-08-02T09:02:00Z"}
`

func TestCodexParse(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/codex/sessions/run-42.jsonl"
	writeFile(t, fsys, path, codexSession)

	a := NewCodex(fsys, "/codex")
	res, err := a.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Partial)

	s := res.Session
	assert.Equal(t, model.AgentCodex, s.Agent)
	assert.Equal(t, "run-42", s.ExternalID)
	assert.Equal(t, "/home/me/fetcher", s.ProjectPath)
	assert.Equal(t, "fetcher", s.ProjectName)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.RoleUser, s.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, s.Messages[1].Role)
}

func TestCodexParseNestedMessage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/codex/sessions/nested.jsonl"
	writeFile(t, fsys, path, `{"message":{"role":"user","content":"hi"},"timestamp":"2026-08-02T09:00:00Z"}`+"\n")

	a := NewCodex(fsys, "/codex")
	res, err := a.Parse(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, res.Session.Messages, 1)
	assert.Equal(t, "hi", res.Session.Messages[0].Content)
}

func TestCodexEnumerateSkipsOtherExtensions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/codex/sessions/a.jsonl", "{}")
	writeFile(t, fsys, "/codex/sessions/b.json", "{}")
	writeFile(t, fsys, "/codex/sessions/history.txt", "x")

	a := NewCodex(fsys, "/codex")
	cands, err := a.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}
