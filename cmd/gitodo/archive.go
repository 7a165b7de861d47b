package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/todo"
	"github.com/example/gitodo/internal/ui"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <path>",
	Short: "Move a todo between the open and archive partitions",
	Long: `Toggle a todo's partition.

An open todo moves under the archive/ directory; an archived todo moves
back out. The move is a create-then-delete migration, so a failure
between the two steps leaves the document present at both keys rather
than lost.`,
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

		wasArchived := todo.IsArchivedPath(args[0])

		if err := app.engine.ToggleArchive(ctx, args[0]); err != nil {
			fatalf("Error archiving %s: %v\n", args[0], err)
		}

		if wasArchived {
			fmt.Printf("%s Restored %s to the open partition\n", ui.RenderPass("✓"), args[0])
		} else {
			fmt.Printf("%s Archived %s\n", ui.RenderPass("✓"), args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
