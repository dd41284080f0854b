// Package adapters converts agent-native session files into the canonical
// model. The supported agents form a closed set behind one interface; the
// rest of the engine never sees agent-specific formats.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/spf13/afero"
)

// maxSessionFileSize guards against pathological session files. Larger files
// are skipped during enumeration.
const maxSessionFileSize = 10 * 1024 * 1024

// FileCandidate describes one source file found during enumeration.
type FileCandidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ParseResult is the outcome of parsing one source file. Partial marks a
// file that looked in-progress (a line failed to parse); the caller should
// retry it on the next run instead of treating the fingerprint as final.
type ParseResult struct {
	Session *model.Session
	Partial bool
}

// Adapter reads one agent's native session files. Parse is pure: it reads
// the file and returns canonical records without touching shared state, so
// callers may run parses in parallel.
type Adapter interface {
	Agent() model.Agent
	DataDir() string
	// Detect reports whether the agent appears installed on this machine.
	Detect() bool
	Enumerate(ctx context.Context) ([]FileCandidate, error)
	Parse(ctx context.Context, path string) (*ParseResult, error)
}

// ParseError is a file-level parse failure, isolated to one source file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// All returns every adapter, backed by fsys, with per-agent data dirs.
// Missing entries in dataDirs fall back to each adapter's default.
func All(fsys afero.Fs, dataDirs map[model.Agent]string) []Adapter {
	return []Adapter{
		NewClaudeCode(fsys, dataDirs[model.AgentClaudeCode]),
		NewCodex(fsys, dataDirs[model.AgentCodex]),
		NewCursor(fsys, dataDirs[model.AgentCursor]),
	}
}

// ForAgent returns the adapter for one agent, or nil for unknown names.
func ForAgent(fsys afero.Fs, agent model.Agent, dataDir string) Adapter {
	switch agent {
	case model.AgentClaudeCode:
		return NewClaudeCode(fsys, dataDir)
	case model.AgentCodex:
		return NewCodex(fsys, dataDir)
	case model.AgentCursor:
		return NewCursor(fsys, dataDir)
	}
	return nil
}

func dirExists(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.IsDir()
}
