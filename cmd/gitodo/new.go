package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/ui"
)

var newCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a todo",
	Long: `Create a todo in the open partition.

The storage key is derived from today's date and a slug of the title,
e.g. "Buy groceries!" becomes todos/2025-06-15-buy-groceries.md. When
the key is taken, a numeric suffix is probed: -1, -2, and so on.

The due date accepts natural language:
  gitodo new "File taxes" --due "next friday"
  gitodo new "Call dentist" --due tomorrow --body "ask about invoice"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body, _ := cmd.Flags().GetString("body")
		dueText, _ := cmd.Flags().GetString("due")

		var dueAt *time.Time
		if dueText != "" {
			parsed, err := parseDue(dueText)
			if err != nil {
				fatalf("Error: %v\n", err)
			}
			dueAt = parsed
		}

		app, err := setup()
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer app.Close()

		ctx := context.Background()
		path, err := app.engine.Create(ctx, args[0], body, dueAt)
		if err != nil {
			fatalf("Error creating todo: %v\n", err)
		}

		fmt.Printf("%s Created %s\n", ui.RenderPass("✓"), path)
		if dueAt != nil {
			fmt.Printf("  Due %s\n", dueAt.Format("2006-01-02"))
		}
	},
}

// parseDue interprets a natural-language due date relative to now.
func parseDue(text string) (*time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(text, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to parse due date %q: %w", text, err)
	}
	if result == nil {
		return nil, fmt.Errorf("could not understand due date %q", text)
	}
	t := result.Time
	return &t, nil
}

func init() {
	newCmd.Flags().String("body", "", "Markdown body of the todo")
	newCmd.Flags().String("due", "", "Due date in natural language (e.g. \"next friday\")")
	rootCmd.AddCommand(newCmd)
}
