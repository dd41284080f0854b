package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/spf13/afero"
)

// Cursor reads Cursor chat exports under ~/.cursor/{projects,sessions}/:
// either a whole-document JSON array of messages or line-delimited JSON,
// depending on the Cursor version.
type Cursor struct {
	fsys    afero.Fs
	dataDir string
}

func NewCursor(fsys afero.Fs, dataDir string) *Cursor {
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".cursor")
	}
	return &Cursor{fsys: fsys, dataDir: dataDir}
}

func (a *Cursor) Agent() model.Agent { return model.AgentCursor }
func (a *Cursor) DataDir() string    { return a.dataDir }

func (a *Cursor) Detect() bool {
	return dirExists(a.fsys, a.dataDir)
}

func (a *Cursor) Enumerate(ctx context.Context) ([]FileCandidate, error) {
	var candidates []FileCandidate
	for _, sub := range []string{"projects", "sessions"} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := filepath.Join(a.dataDir, sub)
		entries, err := afero.ReadDir(a.fsys, dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".json" && ext != ".jsonl" {
				continue
			}
			if entry.Size() > maxSessionFileSize {
				continue
			}
			candidates = append(candidates, FileCandidate{
				Path:    filepath.Join(dir, entry.Name()),
				Size:    entry.Size(),
				ModTime: entry.ModTime(),
			})
		}
	}
	return candidates, nil
}

func (a *Cursor) Parse(ctx context.Context, path string) (*ParseResult, error) {
	externalID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	data, err := afero.ReadFile(a.fsys, path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var (
		messages  []model.Message
		startedAt *time.Time
		endedAt   *time.Time
		partial   bool
	)

	appendMessage := func(line map[string]any) {
		role := jsonString(line, "role")
		content := jsonString(line, "content")
		ts := parseTimestamp(jsonString(line, "timestamp"))
		widenSpan(&startedAt, &endedAt, ts)
		if role != "" && content != "" {
			messages = append(messages, model.Message{
				Seq:       len(messages),
				Role:      model.ParseRole(role),
				Content:   content,
				Timestamp: ts,
			})
		}
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		// Whole-document form is parsed atomically: a malformed document is
		// a file-level failure, not a partial session.
		var arr []map[string]any
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("malformed JSON document: %w", err)}
		}
		for _, line := range arr {
			appendMessage(line)
		}
	} else {
		partial, err = jsonlScan(a.fsys, path, appendMessage)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	session := &model.Session{
		Agent:      model.AgentCursor,
		ExternalID: externalID,
		Status:     model.StatusArchived,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		Messages:   messages,
	}
	if partial {
		session.Status = model.StatusActive
	}
	session.Summary = session.ExtractSummary()
	session.WorkSummary = session.ExtractWorkSummary()

	return &ParseResult{Session: session, Partial: partial}, nil
}
