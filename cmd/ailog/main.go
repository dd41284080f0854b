package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string `help:"Config file path" type:"path"`
	DBPath   string `env:"AILOG_DB_PATH" help:"Index database path"`
	LogLevel string `default:"warn" help:"Log level"`

	Index  IndexCmd  `cmd:"" help:"Scan agent logs and update the index"`
	List   ListCmd   `cmd:"" help:"List indexed sessions"`
	Search SearchCmd `cmd:"" help:"Full-text search over sessions"`
	Show   ShowCmd   `cmd:"" help:"Show one session in full"`
	Stats  StatsCmd  `cmd:"" help:"Aggregate statistics"`
	Tag    TagCmd    `cmd:"" help:"Set tags on a session"`
	Clean  CleanCmd  `cmd:"" help:"Delete sessions older than a cutoff"`
	Prune  PruneCmd  `cmd:"" help:"Drop sessions whose source file is gone"`
	Watch  WatchCmd  `cmd:"" help:"Keep the index updated continuously"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ailog"),
		kong.Description("Unified local history of AI coding agent sessions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
