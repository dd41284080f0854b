// Package engine ties adapters and storage together. It decides which
// source files need re-parsing, runs ingestion and answers queries over the
// index.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ailog-dev/ailog/src/adapters"
	"github.com/ailog-dev/ailog/src/config"
	"github.com/ailog-dev/ailog/src/model"
	"github.com/ailog-dev/ailog/src/storage"
	"github.com/spf13/afero"
)

// Engine is the single entry point for ingestion and queries. All methods
// are synchronous; the caller owns concurrency above this layer.
type Engine struct {
	cfg      *config.Config
	db       *sql.DB
	fs       afero.Fs
	adapters []adapters.Adapter
	logger   *slog.Logger
}

// New wires an engine from its parts. Only agents enabled in the config get
// adapters; data directory overrides come from the config too.
func New(cfg *config.Config, db *sql.DB, fsys afero.Fs, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	dataDirs := make(map[model.Agent]string)
	for name, ac := range cfg.Agents {
		if agent, ok := model.ParseAgent(name); ok && ac.DataDir != "" {
			dataDirs[agent] = ac.DataDir
		}
	}

	var enabled []adapters.Adapter
	for _, ad := range adapters.All(fsys, dataDirs) {
		if cfg.Agents[agentConfigKey(ad.Agent())].On() {
			enabled = append(enabled, ad)
		}
	}

	return &Engine{
		cfg:      cfg,
		db:       db,
		fs:       fsys,
		adapters: enabled,
		logger:   logger,
	}
}

// agentConfigKey maps a canonical agent name to its config map key.
func agentConfigKey(a model.Agent) string {
	return strings.ReplaceAll(a.String(), "-", "")
}

// SessionDetail is one session with its full content.
type SessionDetail struct {
	Session   storage.SessionRow
	Messages  []storage.MessageRow
	ToolCalls []storage.ToolCallRow
}

// List returns session summaries matching the filter, newest first.
func (e *Engine) List(ctx context.Context, filter storage.Filter) ([]storage.SessionRow, error) {
	if filter.Limit <= 0 {
		filter.Limit = e.cfg.Query.DefaultLimit
	}
	return storage.ListSessions(ctx, e.db, filter)
}

// Get returns one session with all messages and tool calls, or
// storage.ErrNotFound.
func (e *Engine) Get(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := storage.GetSession(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := storage.GetMessages(ctx, e.db, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	toolCalls, err := storage.GetToolCalls(ctx, e.db, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load tool calls: %w", err)
	}
	return &SessionDetail{
		Session:   *session,
		Messages:  messages,
		ToolCalls: toolCalls,
	}, nil
}

// SearchResult is one ranked match. Score combines full-text relevance with
// a recency boost; higher is better.
type SearchResult struct {
	SessionID   string
	Agent       string
	ProjectName string
	ProjectPath string
	Role        string
	Snippet     string
	Summary     string
	StartedAt   *time.Time
	Score       float64
}

// Search runs the keyword over message content and session metadata and
// merges the results, keeping each session's best match. bm25 ranks lower
// as better, so the score negates it before adding the recency boost.
func (e *Engine) Search(ctx context.Context, keyword string, filter storage.Filter) ([]SearchResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = e.cfg.Query.DefaultLimit
	}

	msgRows, err := storage.SearchMessages(ctx, e.db, keyword, filter)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	metaRows, err := storage.SearchSessionMeta(ctx, e.db, keyword, filter)
	if err != nil {
		return nil, fmt.Errorf("search session metadata: %w", err)
	}

	now := time.Now()
	best := make(map[string]SearchResult)
	for _, row := range append(msgRows, metaRows...) {
		result := SearchResult{
			SessionID:   row.SessionID,
			Agent:       row.Agent,
			ProjectName: row.ProjectName,
			ProjectPath: row.ProjectPath,
			Role:        row.Role,
			Snippet:     row.Snippet,
			Summary:     row.Summary,
			StartedAt:   row.StartedAt,
			Score:       -row.Rank + e.recencyBoost(now, row.StartedAt),
		}
		if prev, ok := best[result.SessionID]; !ok || result.Score > prev.Score {
			best[result.SessionID] = result
		}
	}

	results := make([]SearchResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SessionID < results[j].SessionID
	})
	if len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// recencyBoost adds up to 1.0 for sessions newer than the configured window,
// decaying linearly to zero at the window edge.
func (e *Engine) recencyBoost(now time.Time, startedAt *time.Time) float64 {
	days := e.cfg.Query.RecencyBoostDays
	if days <= 0 || startedAt == nil {
		return 0
	}
	age := now.Sub(*startedAt)
	window := time.Duration(days) * 24 * time.Hour
	if age < 0 || age >= window {
		return 0
	}
	return 1.0 - float64(age)/float64(window)
}

// SearchByFile returns sessions whose tool calls touched a matching path.
func (e *Engine) SearchByFile(ctx context.Context, filePath string, limit int) ([]storage.SessionRow, error) {
	if limit <= 0 {
		limit = e.cfg.Query.DefaultLimit
	}
	return storage.SearchByFile(ctx, e.db, filePath, limit)
}

// Stats computes aggregates over sessions matching the filter.
func (e *Engine) Stats(ctx context.Context, filter storage.Filter) (*storage.Stats, error) {
	return storage.GetStats(ctx, e.db, filter)
}

// Tag replaces a session's tags. Tags survive re-ingestion.
func (e *Engine) Tag(ctx context.Context, sessionID string, tags []string) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tag transaction: %w", err)
	}
	defer tx.Rollback()

	if err := storage.UpdateTags(ctx, tx, sessionID, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// Tags returns a session's tags, or storage.ErrNotFound.
func (e *Engine) Tags(ctx context.Context, sessionID string) ([]string, error) {
	return storage.GetTags(ctx, e.db, sessionID)
}
