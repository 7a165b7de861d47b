package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show one todo",
	Long: `Fetch and print a single todo by its storage path.

The path is relative to the store root, e.g.
todos/2025-06-15-buy-groceries.md.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := setup()
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer app.Close()

		ctx := context.Background()
		if err := app.engine.OnSettingsLoaded(ctx); err != nil {
			fatalf("Error fetching todos: %v\n", err)
		}

		t := app.engine.Find(args[0])
		if t == nil {
			fatalf("Error: no todo at %s\n", args[0])
		}

		fmt.Printf("\n%s\n", ui.RenderTitle(t.Title))
		fmt.Printf("%s\n", ui.RenderMuted(t.Path))
		fmt.Printf("%s\n", ui.RenderMuted("version "+t.Version))
		fmt.Printf("Priority: %d\n", t.Frontmatter.Priority)
		if !t.Frontmatter.CreatedAt.IsZero() {
			fmt.Printf("Created: %s\n", t.Frontmatter.CreatedAt.Format("2006-01-02"))
		}
		if t.Frontmatter.DueAt != nil {
			fmt.Printf("Due: %s\n", t.Frontmatter.DueAt.Format("2006-01-02"))
		}
		fmt.Printf("\n%s\n", t.Content)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
