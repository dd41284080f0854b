package adapters

import (
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

// ClaudeCode reads Claude Code session logs: line-delimited JSON under
// ~/.claude/projects/<encoded-project-path>/, one file per session.
type ClaudeCode struct {
	fsys    afero.Fs
	dataDir string
}

func NewClaudeCode(fsys afero.Fs, dataDir string) *ClaudeCode {
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".claude")
	}
	return &ClaudeCode{fsys: fsys, dataDir: dataDir}
}

func (a *ClaudeCode) Agent() model.Agent { return model.AgentClaudeCode }
func (a *ClaudeCode) DataDir() string    { return a.dataDir }

func (a *ClaudeCode) projectsDir() string {
	return filepath.Join(a.dataDir, "projects")
}

func (a *ClaudeCode) Detect() bool {
	return dirExists(a.fsys, a.dataDir) && dirExists(a.fsys, a.projectsDir())
}

func (a *ClaudeCode) Enumerate(ctx context.Context) ([]FileCandidate, error) {
	projectsDir := a.projectsDir()
	if !dirExists(a.fsys, projectsDir) {
		return nil, nil
	}

	projects, err := afero.ReadDir(a.fsys, projectsDir)
	if err != nil {
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	var candidates []FileCandidate
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !project.IsDir() {
			continue
		}
		projectDir := filepath.Join(projectsDir, project.Name())
		candidates = appendSessionFiles(a.fsys, candidates, projectDir)
		candidates = appendSessionFiles(a.fsys, candidates, filepath.Join(projectDir, "sessions"))
	}
	return candidates, nil
}

// appendSessionFiles collects .jsonl session files from dir, skipping
// subagent transcripts and oversized files.
func appendSessionFiles(fsys afero.Fs, candidates []FileCandidate, dir string) []FileCandidate {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return candidates
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		if strings.Contains(entry.Name(), "subagent") {
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
	return candidates
}

func (a *ClaudeCode) Parse(ctx context.Context, path string) (*ParseResult, error) {
	externalID := strings.TrimSuffix(filepath.Base(path), ".jsonl")

	var (
		messages   []model.Message
		toolCalls  []model.ToolCall
		startedAt  *time.Time
		endedAt    *time.Time
		cwd        string
		embeddedID string
	)

	partial, err := jsonlScan(a.fsys, path, func(line map[string]any) {
		if cwd == "" {
			cwd = jsonString(line, "cwd")
		}
		if embeddedID == "" {
			embeddedID = jsonString(line, "sessionId")
		}

		ts := parseTimestamp(jsonString(line, "timestamp"))
		widenSpan(&startedAt, &endedAt, ts)

		switch jsonString(line, "type") {
		case "user":
			content := userMessageContent(line)
			if content != "" {
				messages = append(messages, model.Message{
					Seq:       len(messages),
					Role:      model.RoleUser,
					Content:   content,
					Timestamp: ts,
				})
			}
		case "assistant":
			msg, ok := line["message"].(map[string]any)
			if !ok {
				msg = line
			}
			text, changed, calls := assistantContent(msg, ts, len(toolCalls))
			toolCalls = append(toolCalls, calls...)
			if text != "" {
				messages = append(messages, model.Message{
					Seq:          len(messages),
					Role:         model.RoleAssistant,
					Content:      text,
					Timestamp:    ts,
					FilesChanged: changed,
				})
			}
		}
	})
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if embeddedID != "" {
		externalID = embeddedID
	}

	projectPath := cwd
	if projectPath == "" {
		projectPath = a.projectPathFor(path)
	}

	session := &model.Session{
		Agent:       model.AgentClaudeCode,
		ExternalID:  externalID,
		ProjectPath: projectPath,
		ProjectName: projectNameOf(projectPath),
		Status:      model.StatusArchived,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		Messages:    messages,
		ToolCalls:   toolCalls,
	}
	if partial {
		session.Status = model.StatusActive
	}
	session.Summary = session.ExtractSummary()
	session.WorkSummary = session.ExtractWorkSummary()

	return &ParseResult{Session: session, Partial: partial}, nil
}

// userMessageContent extracts text from a user line, where message.content
// is either a plain string or an array of typed blocks.
func userMessageContent(line map[string]any) string {
	msg, ok := line["message"].(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := msg["content"].(string); ok {
		return s
	}
	arr, ok := msg["content"].([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range arr {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if jsonString(block, "type") == "text" {
			if text := jsonString(block, "text"); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// fileChangeTools are tool names whose target path counts as a file change.
var fileChangeTools = map[string]bool{
	"Write": true, "Edit": true, "Read": true,
	"create_file": true, "edit_file": true, "delete_file": true,
}

// assistantContent pulls the text parts and tool_use blocks out of one
// assistant message. seqBase keeps tool call ordinals increasing across the
// whole file.
func assistantContent(msg map[string]any, ts *time.Time, seqBase int) (text string, filesChanged []string, calls []model.ToolCall) {
	content := msg["content"]
	if s, ok := content.(string); ok {
		return s, nil, nil
	}
	arr, ok := content.([]any)
	if !ok {
		return "", nil, nil
	}

	var parts []string
	for _, item := range arr {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch jsonString(block, "type") {
		case "text":
			if t := jsonString(block, "text"); t != "" {
				parts = append(parts, t)
			}
		case "tool_use":
			name := jsonString(block, "name")
			filePath := jsonString(block, "input", "file_path")
			if filePath == "" {
				filePath = jsonString(block, "input", "path")
			}
			if fileChangeTools[name] && filePath != "" {
				filesChanged = append(filesChanged, filePath)
			}
			calls = append(calls, model.ToolCall{
				Seq:       seqBase + len(calls),
				Name:      name,
				FilePath:  filePath,
				Summary:   toolSummary(block["input"]),
				Timestamp: ts,
			})
		}
	}
	return strings.Join(parts, "\n"), filesChanged, calls
}

// toolSummary renders a tool input as a compact opaque string so unknown
// payload shapes stay searchable instead of being dropped.
func toolSummary(input any) string {
	if input == nil {
		return ""
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	const max = 200
	s := string(raw)
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// projectPathFor decodes the project path from the encoded directory name
// the file lives under, e.g. "-Users-me-src-app" becomes /Users/me/src/app.
func (a *ClaudeCode) projectPathFor(sessionFile string) string {
	dir := filepath.Dir(sessionFile)
	if filepath.Base(dir) == "sessions" {
		dir = filepath.Dir(dir)
	}
	encoded := filepath.Base(dir)
	if encoded == "" || !strings.HasPrefix(encoded, "-") {
		return ""
	}
	return a.decodeProjectPath(encoded)
}

// decodeProjectPath reverses Claude Code's path encoding, which replaces
// every '/' with '-'. Hyphens inside real directory names are ambiguous, so
// segments are greedily joined while the joined prefix exists on disk.
func (a *ClaudeCode) decodeProjectPath(encoded string) string {
	segments := strings.Split(strings.TrimPrefix(encoded, "-"), "-")
	result := "/"
	current := ""
	for i, seg := range segments {
		if current == "" {
			current = seg
		} else {
			current = current + "-" + seg
		}
		candidate := filepath.Join(result, current)
		if dirExists(a.fsys, candidate) || i == len(segments)-1 {
			result = candidate
			current = ""
		}
	}
	if current != "" {
		result = filepath.Join(result, current)
	}
	return result
}

func projectNameOf(projectPath string) string {
	if projectPath == "" {
		return ""
	}
	return filepath.Base(projectPath)
}
