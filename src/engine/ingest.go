package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ailog-dev/ailog/src/adapters"
	"github.com/ailog-dev/ailog/src/model"
	"github.com/ailog-dev/ailog/src/storage"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"
)

// RunSummary reports one ingestion run.
type RunSummary struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Agents    map[model.Agent]*AgentSummary
	Failures  []Failure
}

// AgentSummary counts per-agent outcomes of a run. Scanned covers every
// enumerated file; Changed files were re-parsed; Partial files parsed but
// looked in-progress and will be retried next run.
type AgentSummary struct {
	Scanned   int
	Changed   int
	Unchanged int
	Partial   int
	Failed    int
}

// Failure is one file that could not be ingested. Failures never abort the
// run; other files proceed.
type Failure struct {
	Agent model.Agent
	Path  string
	Err   error
}

// Ingest scans source files, re-parses what changed, and commits each file
// in its own transaction. With no agents given, every configured agent is
// scanned. Cancellation is honored between files; a file already being
// committed finishes.
func (e *Engine) Ingest(ctx context.Context, agents ...model.Agent) (*RunSummary, error) {
	run := &RunSummary{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Agents:    make(map[model.Agent]*AgentSummary),
	}

	for _, ad := range e.selectAdapters(agents) {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		e.ingestAgent(ctx, ad, run)
	}

	run.Duration = time.Since(run.StartedAt)
	e.logger.Info("ingest run finished",
		"run_id", run.RunID,
		"duration", run.Duration,
		"failures", len(run.Failures))
	return run, ctx.Err()
}

// Rebuild drops indexed content and change-detection state, then re-ingests
// from source. With agents given, only those agents' rows are cleared; other
// agents' sessions and their tags stay intact.
func (e *Engine) Rebuild(ctx context.Context, agents ...model.Agent) (*RunSummary, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()
	if len(agents) == 0 {
		err = storage.ClearAll(ctx, tx)
	} else {
		for _, agent := range agents {
			if err = storage.ClearAgent(ctx, tx, agent.String()); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rebuild clear: %w", err)
	}
	e.logger.Info("index cleared for rebuild", "agents", len(agents))
	return e.Ingest(ctx, agents...)
}

func (e *Engine) selectAdapters(agents []model.Agent) []adapters.Adapter {
	if len(agents) == 0 {
		return e.adapters
	}
	want := make(map[model.Agent]bool, len(agents))
	for _, a := range agents {
		want[a] = true
	}
	var out []adapters.Adapter
	for _, ad := range e.adapters {
		if want[ad.Agent()] {
			out = append(out, ad)
		}
	}
	return out
}

type parseOutcome struct {
	cand   adapters.FileCandidate
	result *adapters.ParseResult
	hash   string
	err    error
}

func (e *Engine) ingestAgent(ctx context.Context, ad adapters.Adapter, run *RunSummary) {
	agent := ad.Agent()
	sum := &AgentSummary{}
	run.Agents[agent] = sum

	if !ad.Detect() {
		e.logger.Debug("agent not detected, skipping", "agent", agent)
		return
	}

	cands, err := ad.Enumerate(ctx)
	if err != nil {
		e.logger.Warn("enumeration failed", "agent", agent, "error", err)
		run.Failures = append(run.Failures, Failure{Agent: agent, Path: ad.DataDir(), Err: err})
		return
	}

	states, err := storage.GetIndexStates(ctx, e.db, agent.String())
	if err != nil {
		run.Failures = append(run.Failures, Failure{Agent: agent, Err: err})
		return
	}
	prevByPath := make(map[string]*storage.IndexStateRow, len(states))
	for i := range states {
		prevByPath[states[i].FilePath] = &states[i]
	}

	var changed []adapters.FileCandidate
	for _, cand := range cands {
		sum.Scanned++
		if max := e.cfg.Index.MaxFileSize; max > 0 && cand.Size > max {
			e.logger.Debug("file exceeds size limit, skipping", "path", cand.Path, "size", cand.Size)
			continue
		}
		prev := prevByPath[cand.Path]
		decision, err := decideChange(e.fs, prev, cand)
		if err != nil {
			// Could not read the file to settle ambiguity; let the
			// parse attempt report the real error.
			e.logger.Debug("fingerprint check failed", "path", cand.Path, "error", err)
		}
		switch decision {
		case fileUnchanged:
			sum.Unchanged++
		case fileRefreshed:
			sum.Unchanged++
			e.refreshState(ctx, prev, cand)
		case fileChanged:
			changed = append(changed, cand)
		}
	}
	sum.Changed = len(changed)
	if len(changed) == 0 {
		return
	}

	e.logger.Debug("parsing changed files", "agent", agent, "count", len(changed))

	// Parses are pure and run in parallel; commits are serialized through
	// the single writer loop below.
	jobs := make(chan adapters.FileCandidate)
	results := make(chan parseOutcome)

	g := new(errgroup.Group)
	for i := 0; i < e.workers(); i++ {
		g.Go(func() error {
			for cand := range jobs {
				results <- e.parseOne(ctx, ad, cand)
			}
			return nil
		})
	}
	go func() {
		defer close(jobs)
		for _, cand := range changed {
			select {
			case jobs <- cand:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		g.Wait()
		close(results)
	}()

	for out := range results {
		if ctx.Err() != nil {
			continue // drain without committing
		}
		if out.err != nil {
			sum.Failed++
			run.Failures = append(run.Failures, Failure{Agent: agent, Path: out.cand.Path, Err: out.err})
			e.logger.Warn("file ingestion failed", "path", out.cand.Path, "error", out.err)
			continue
		}
		if out.result.Partial {
			sum.Partial++
		}
		if err := e.commitFile(ctx, agent, out); err != nil {
			sum.Failed++
			run.Failures = append(run.Failures, Failure{Agent: agent, Path: out.cand.Path, Err: err})
			e.logger.Warn("file commit failed", "path", out.cand.Path, "error", err)
		}
	}
}

func (e *Engine) parseOne(ctx context.Context, ad adapters.Adapter, cand adapters.FileCandidate) parseOutcome {
	out := parseOutcome{cand: cand}
	out.result, out.err = ad.Parse(ctx, cand.Path)
	if out.err != nil {
		return out
	}
	// The hash is stored with the fingerprint so later runs can settle
	// size/mtime ambiguity without re-parsing.
	out.hash, out.err = hashFile(e.fs, cand.Path)
	return out
}

// commitFile writes one parsed file atomically: session content and its
// fingerprint commit together or not at all. One retry on failure.
func (e *Engine) commitFile(ctx context.Context, agent model.Agent, out parseOutcome) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = e.tryCommitFile(ctx, agent, out); err == nil {
			return nil
		}
		e.logger.Warn("store transaction failed", "path", out.cand.Path, "attempt", attempt+1, "error", err)
	}
	return err
}

func (e *Engine) tryCommitFile(ctx context.Context, agent model.Agent, out parseOutcome) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := storage.ReplaceSession(ctx, tx, out.result.Session); err != nil {
		return err
	}
	if err := storage.UpsertIndexState(ctx, tx, &storage.IndexStateRow{
		FilePath:    out.cand.Path,
		Agent:       agent.String(),
		Size:        out.cand.Size,
		MtimeNS:     out.cand.ModTime.UnixNano(),
		ContentHash: out.hash,
		Partial:     out.result.Partial,
		ParsedAt:    time.Now().UTC(),
		SessionID:   out.result.Session.ID(),
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// refreshState updates a fingerprint whose content was proven identical, so
// the next run can skip the file on metadata alone again.
func (e *Engine) refreshState(ctx context.Context, prev *storage.IndexStateRow, cand adapters.FileCandidate) {
	state := *prev
	state.Size = cand.Size
	state.MtimeNS = cand.ModTime.UnixNano()
	state.ParsedAt = time.Now().UTC()
	if err := storage.UpsertIndexState(ctx, e.db, &state); err != nil {
		e.logger.Warn("fingerprint refresh failed", "path", cand.Path, "error", err)
	}
}

// workers returns the parse pool size: the configured count, or one per
// physical CPU.
func (e *Engine) workers() int {
	if e.cfg.Index.Workers > 0 {
		return e.cfg.Index.Workers
	}
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
