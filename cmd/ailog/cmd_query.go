package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// ListCmd lists indexed sessions
type ListCmd struct {
	Agent   string `help:"Filter by agent"`
	Project string `help:"Filter by project path"`
	Tag     string `help:"Filter by tag"`
	Since   string `help:"Only sessions newer than a window like 7d or 2w"`
	Limit   int    `help:"Maximum results"`
}

// Run executes the list command
func (c *ListCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	filter, err := buildFilter(c.Agent, c.Project, c.Tag, c.Since, c.Limit)
	if err != nil {
		return err
	}

	sessions, err := app.engine.List(context.Background(), filter)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tSTARTED\tMSGS\tSTATUS\tSUMMARY")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.ProjectName, formatTime(s.StartedAt), s.MessageCount, s.Status, clip(s.Summary, 60))
	}
	return w.Flush()
}

// SearchCmd runs a full-text search over sessions
type SearchCmd struct {
	Keyword []string `arg:"" help:"Search terms"`
	Agent   string   `help:"Filter by agent"`
	Project string   `help:"Filter by project path"`
	Tag     string   `help:"Filter by tag"`
	Since   string   `help:"Only sessions newer than a window like 7d or 2w"`
	Limit   int      `help:"Maximum results"`
	File    string   `help:"Search by touched file path instead of keyword"`
}

// Run executes the search command
func (c *SearchCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	if c.File != "" {
		sessions, err := app.engine.SearchByFile(ctx, c.File, c.Limit)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  %s\n", s.ID, formatTime(s.StartedAt), clip(s.Summary, 70))
		}
		if len(sessions) == 0 {
			fmt.Println("no matches")
		}
		return nil
	}

	filter, err := buildFilter(c.Agent, c.Project, c.Tag, c.Since, c.Limit)
	if err != nil {
		return err
	}

	results, err := app.engine.Search(ctx, strings.Join(c.Keyword, " "), filter)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%s  %s  %s\n", r.SessionID, formatTime(r.StartedAt), r.ProjectName)
		if r.Snippet != "" {
			fmt.Printf("    %s\n", clip(r.Snippet, 120))
		}
	}
	return nil
}

// ShowCmd shows one session in full
type ShowCmd struct {
	ID    string `arg:"" help:"Session id, e.g. claude-code:abc123"`
	Tools bool   `help:"Include tool calls"`
}

// Run executes the show command
func (c *ShowCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	detail, err := app.engine.Get(context.Background(), c.ID)
	if err != nil {
		return err
	}

	s := detail.Session
	fmt.Printf("%s\n", s.ID)
	fmt.Printf("project:  %s (%s)\n", s.ProjectName, s.ProjectPath)
	fmt.Printf("started:  %s\n", formatTime(s.StartedAt))
	fmt.Printf("ended:    %s\n", formatTime(s.EndedAt))
	fmt.Printf("status:   %s\n", s.Status)
	if s.Tags != "" {
		fmt.Printf("tags:     %s\n", strings.Join(s.TagList(), ", "))
	}
	if s.Summary != "" {
		fmt.Printf("summary:  %s\n", s.Summary)
	}
	fmt.Printf("files:    +%d ~%d -%d\n", s.FilesCreated, s.FilesModified, s.FilesDeleted)
	fmt.Println()

	for _, m := range detail.Messages {
		fmt.Printf("[%s] %s\n", m.Role, formatTime(m.Timestamp))
		fmt.Println(indent(m.Content, "  "))
	}

	if c.Tools && len(detail.ToolCalls) > 0 {
		fmt.Println("tool calls:")
		for _, tc := range detail.ToolCalls {
			if tc.FilePath != "" {
				fmt.Printf("  %s %s\n", tc.ToolName, tc.FilePath)
			} else {
				fmt.Printf("  %s %s\n", tc.ToolName, clip(tc.Summary, 80))
			}
		}
	}
	return nil
}

// StatsCmd prints aggregate statistics
type StatsCmd struct {
	Agent   string `help:"Filter by agent"`
	Project string `help:"Filter by project path"`
	Since   string `help:"Only sessions newer than a window like 7d or 2w"`
}

// Run executes the stats command
func (c *StatsCmd) Run(cli *CLI) error {
	app, err := openApp(cli)
	if err != nil {
		return err
	}
	defer app.Close()

	filter, err := buildFilter(c.Agent, c.Project, "", c.Since, 0)
	if err != nil {
		return err
	}

	stats, err := app.engine.Stats(context.Background(), filter)
	if err != nil {
		return err
	}

	fmt.Printf("sessions:   %d\n", stats.TotalSessions)
	fmt.Printf("messages:   %d\n", stats.TotalMessages)
	fmt.Printf("tool calls: %d\n", stats.TotalToolCalls)
	fmt.Printf("files:      +%d ~%d -%d\n", stats.FilesCreated, stats.FilesModified, stats.FilesDeleted)
	if stats.EarliestSession != nil && stats.LatestSession != nil {
		fmt.Printf("span:       %s to %s\n", formatTime(stats.EarliestSession), formatTime(stats.LatestSession))
	}
	if len(stats.SessionsByAgent) > 0 {
		fmt.Println("by agent:")
		for _, b := range stats.SessionsByAgent {
			fmt.Printf("  %-14s %d\n", b.Key, b.Count)
		}
	}
	if len(stats.SessionsByProject) > 0 {
		fmt.Println("by project:")
		for _, b := range stats.SessionsByProject {
			fmt.Printf("  %-24s %d\n", b.Key, b.Count)
		}
	}
	if len(stats.MostModifiedFiles) > 0 {
		fmt.Println("most touched files:")
		for _, b := range stats.MostModifiedFiles {
			fmt.Printf("  %4d  %s\n", b.Count, b.Key)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
