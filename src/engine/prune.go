package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ailog-dev/ailog/src/storage"
)

// Prune removes sessions whose backing source file has disappeared. Nothing
// is ever deleted implicitly during ingestion; this is the only path that
// drops sessions because of missing files. Returns how many sessions were
// removed.
func (e *Engine) Prune(ctx context.Context, agent string) (int, error) {
	states, err := storage.GetIndexStates(ctx, e.db, agent)
	if err != nil {
		return 0, fmt.Errorf("load tracked files: %w", err)
	}

	removed := 0
	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, err := e.fs.Stat(state.FilePath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			e.logger.Warn("stat failed during prune, keeping session", "path", state.FilePath, "error", err)
			continue
		}

		if err := e.pruneOne(ctx, state); err != nil {
			return removed, err
		}
		e.logger.Info("pruned vanished session", "path", state.FilePath, "session", state.SessionID)
		removed++
	}
	return removed, nil
}

func (e *Engine) pruneOne(ctx context.Context, state storage.IndexStateRow) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prune transaction: %w", err)
	}
	defer tx.Rollback()

	if state.SessionID != "" {
		if err := storage.DeleteSession(ctx, tx, state.SessionID); err != nil {
			return err
		}
	}
	if err := storage.DeleteIndexState(ctx, tx, state.FilePath); err != nil {
		return fmt.Errorf("delete index state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prune: %w", err)
	}
	return nil
}

// Clean removes sessions that started before the cutoff, optionally limited
// to one agent. Their change-detection state goes with them so a later
// ingest re-indexes the files only if they still exist and are wanted.
func (e *Engine) Clean(ctx context.Context, before time.Time, agent string) (int, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clean transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := storage.CleanSessions(ctx, tx, before, agent)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clean: %w", err)
	}
	e.logger.Info("cleaned old sessions", "count", len(ids), "before", before)
	return len(ids), nil
}
