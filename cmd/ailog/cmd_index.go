package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/ailog-dev/ailog/src/engine"
	"github.com/ailog-dev/ailog/src/model"
)

// IndexCmd scans agent logs and updates the index
type IndexCmd struct {
	Agent   string `help:"Only scan one agent (claude-code, codex, cursor)"`
	Rebuild bool   `help:"Drop indexed data and re-ingest; with --agent only that agent's data"`
}

// Run executes the index command
func (c *IndexCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var agents []model.Agent
	if c.Agent != "" {
		agent, err := resolveAgent(c.Agent)
		if err != nil {
			return err
		}
		agents = append(agents, agent)
	}

	var run *engine.RunSummary
	if c.Rebuild {
		run, err = app.engine.Rebuild(ctx, agents...)
	} else {
		run, err = app.engine.Ingest(ctx, agents...)
	}
	if run != nil {
		printRunSummary(run)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printRunSummary(run *engine.RunSummary) {
	agents := make([]model.Agent, 0, len(run.Agents))
	for agent := range run.Agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })

	for _, agent := range agents {
		sum := run.Agents[agent]
		fmt.Printf("%-12s scanned %d, changed %d, unchanged %d, partial %d, failed %d\n",
			agent, sum.Scanned, sum.Changed, sum.Unchanged, sum.Partial, sum.Failed)
	}
	for _, f := range run.Failures {
		fmt.Printf("  failed: %s: %v\n", f.Path, f.Err)
	}
	fmt.Printf("done in %s\n", run.Duration.Round(time.Millisecond))
}

// WatchCmd keeps the index updated continuously
type WatchCmd struct{}

// Run executes the watch command
func (c *WatchCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("watching agent logs, Ctrl-C to stop")
	if err := app.engine.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
