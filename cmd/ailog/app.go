package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ailog-dev/ailog/src/config"
	"github.com/ailog-dev/ailog/src/engine"
	"github.com/ailog-dev/ailog/src/model"
	"github.com/ailog-dev/ailog/src/storage"
	"github.com/spf13/afero"
)

// app holds the wired engine for one command invocation.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	engine *engine.Engine
}

// openApp loads config, opens the index database and wires the engine.
// Callers must Close.
func openApp(cli *CLI) (*app, error) {
	cfg, err := config.NewLoader(cli.Config).Load()
	if err != nil {
		return nil, err
	}
	if cli.DBPath != "" {
		cfg.DBPath = cli.DBPath
	}

	db, err := storage.Open(cfg.ResolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	logger := createCLILogger(cli.LogLevel)
	return &app{
		cfg:    cfg,
		db:     db,
		engine: engine.New(cfg, db, afero.NewOsFs(), logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// resolveAgent parses a user-supplied agent name, accepting aliases.
func resolveAgent(name string) (model.Agent, error) {
	agent, ok := model.ParseAgent(name)
	if !ok {
		return "", fmt.Errorf("unknown agent %q (expected claude-code, codex or cursor)", name)
	}
	return agent, nil
}

// buildFilter assembles the shared session filter from command flags.
func buildFilter(agent, project, tag, since string, limit int) (storage.Filter, error) {
	filter := storage.Filter{
		Project: project,
		Tag:     tag,
		Limit:   limit,
	}
	if agent != "" {
		a, err := resolveAgent(agent)
		if err != nil {
			return filter, err
		}
		filter.Agent = a.String()
	}
	if since != "" {
		from, err := engine.WindowStart(time.Now(), since)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	return filter, nil
}
