package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/cache"
	"github.com/example/gitodo/internal/settings"
	"github.com/example/gitodo/internal/todo"
	"github.com/example/gitodo/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos in the current view",
	Long: `List the todos of one partition.

By default the open partition is fetched from the remote store. Use
--archived for the archive partition, or --offline to read the local
snapshot left by the last successful fetch without touching the remote.`,
	Run: func(cmd *cobra.Command, args []string) {
		archived, _ := cmd.Flags().GetBool("archived")
		offline, _ := cmd.Flags().GetBool("offline")

		mode := todo.ViewOpen
		if archived {
			mode = todo.ViewArchived
		}

		if offline {
			runListOffline(mode)
			return
		}

		app, err := setup()
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer app.Close()

		ctx := context.Background()
		if err := app.engine.OnSettingsLoaded(ctx); err != nil {
			fatalf("Error fetching todos: %v\n", err)
		}
		if app.engine.ViewMode() != mode {
			if err := app.engine.OnViewModeChanged(ctx, mode); err != nil {
				fatalf("Error fetching todos: %v\n", err)
			}
		}

		printTodos(app.engine.Todos(), app.engine.SelectedID(), mode)
	},
}

func init() {
	listCmd.Flags().BoolP("archived", "a", false, "List the archive partition")
	listCmd.Flags().Bool("offline", false, "Read the local snapshot instead of the remote store")
	rootCmd.AddCommand(listCmd)
}

func runListOffline(mode todo.ViewMode) {
	cfg, err := settings.Load(configDir)
	if err != nil {
		fatalf("Error: %v\n", err)
	}

	db, err := cache.Open(cfg.CachePath)
	if err != nil {
		fatalf("Error opening snapshot: %v\n", err)
	}
	defer db.Close()

	todos, err := db.ListTodos(context.Background(), mode)
	if err != nil {
		fatalf("Error reading snapshot: %v\n", err)
	}

	fmt.Printf("%s offline snapshot\n", ui.RenderWarn("⚠"))
	printTodos(todos, "", mode)
}

func printTodos(todos []*todo.Todo, selectedID string, mode todo.ViewMode) {
	if len(todos) == 0 {
		fmt.Printf("No %s todos\n", mode)
		return
	}

	fmt.Printf("\n%s (%d)\n\n", ui.RenderTitle(fmt.Sprintf("%s todos", mode)), len(todos))
	for _, t := range todos {
		marker := " "
		if selectedID != "" && t.ID == selectedID {
			marker = ui.RenderAccent("›")
		}

		due := ""
		if t.Frontmatter.DueAt != nil {
			due = ui.RenderWarn(" due " + t.Frontmatter.DueAt.Format("2006-01-02"))
			if t.Frontmatter.DueAt.Before(time.Now()) {
				due = ui.RenderErr(" overdue " + t.Frontmatter.DueAt.Format("2006-01-02"))
			}
		}

		fmt.Printf("%s P%d %s%s\n", marker, t.Frontmatter.Priority, t.Title, due)
		fmt.Printf("  %s\n", ui.RenderMuted(t.Path))
	}
	fmt.Println()
}
