package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ailog-dev/ailog/src/model"
	"github.com/spf13/afero"
)

// Codex reads Codex CLI session logs: line-delimited JSON (or plain JSON)
// under ~/.codex/sessions/, one file per session.
type Codex struct {
	fsys    afero.Fs
	dataDir string
}

func NewCodex(fsys afero.Fs, dataDir string) *Codex {
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".codex")
	}
	return &Codex{fsys: fsys, dataDir: dataDir}
}

func (a *Codex) Agent() model.Agent { return model.AgentCodex }
func (a *Codex) DataDir() string    { return a.dataDir }

func (a *Codex) sessionsDir() string {
	return filepath.Join(a.dataDir, "sessions")
}

func (a *Codex) Detect() bool {
	return dirExists(a.fsys, a.dataDir)
}

func (a *Codex) Enumerate(ctx context.Context) ([]FileCandidate, error) {
	dir := a.sessionsDir()
	if !dirExists(a.fsys, dir) {
		return nil, nil
	}
	entries, err := afero.ReadDir(a.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var candidates []FileCandidate
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".jsonl" && ext != ".json" {
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
	return candidates, nil
}

func (a *Codex) Parse(ctx context.Context, path string) (*ParseResult, error) {
	externalID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var (
		messages    []model.Message
		startedAt   *time.Time
		endedAt     *time.Time
		projectPath string
	)

	partial, err := jsonlScan(a.fsys, path, func(line map[string]any) {
		role := jsonString(line, "role")
		if role == "" {
			role = jsonString(line, "message", "role")
		}
		content := jsonString(line, "content")
		if content == "" {
			content = jsonString(line, "message", "content")
		}
		if projectPath == "" {
			projectPath = jsonString(line, "cwd")
		}

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
	})
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	session := &model.Session{
		Agent:       model.AgentCodex,
		ExternalID:  externalID,
		ProjectPath: projectPath,
		ProjectName: projectNameOf(projectPath),
		Status:      model.StatusArchived,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		Messages:    messages,
	}
	if partial {
		session.Status = model.StatusActive
	}
	session.Summary = session.ExtractSummary()
	session.WorkSummary = session.ExtractWorkSummary()

	return &ParseResult{Session: session, Partial: partial}, nil
}
