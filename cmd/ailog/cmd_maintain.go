package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ailog-dev/ailog/src/engine"
)

// TagCmd sets tags on a session
type TagCmd struct {
	ID   string   `arg:"" help:"Session id"`
	Tags []string `arg:"" optional:"" help:"Tags to set; empty clears all tags"`
}

// Run executes the tag command
func (c *TagCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.engine.Tag(ctx, c.ID, c.Tags); err != nil {
		return err
	}

	tags, err := app.engine.Tags(ctx, c.ID)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Printf("%s: tags cleared\n", c.ID)
	} else {
		fmt.Printf("%s: %v\n", c.ID, tags)
	}
	return nil
}

// CleanCmd deletes sessions older than a cutoff
type CleanCmd struct {
	Before string `required:"" help:"Age window like 30d, 6m or 1y"`
	Agent  string `help:"Only clean one agent"`
}

// Run executes the clean command
func (c *CleanCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	cutoff, err := engine.WindowStart(time.Now(), c.Before)
	if err != nil {
		return err
	}

	agent := ""
	if c.Agent != "" {
		a, err := resolveAgent(c.Agent)
		if err != nil {
			return err
		}
		agent = a.String()
	}

	n, err := app.engine.Clean(context.Background(), cutoff, agent)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d sessions older than %s\n", n, c.Before)
	return nil
}

// PruneCmd drops sessions whose source file is gone
type PruneCmd struct {
	Agent string `help:"Only prune one agent"`
}

// Run executes the prune command
func (c *PruneCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	agent := ""
	if c.Agent != "" {
		a, err := resolveAgent(c.Agent)
		if err != nil {
			return err
		}
		agent = a.String()
	}

	n, err := app.engine.Prune(context.Background(), agent)
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d sessions\n", n)
	return nil
}
