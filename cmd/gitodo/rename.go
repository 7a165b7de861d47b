package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/ui"
)

var renameCmd = &cobra.Command{
	Use:   "rename <path> <new title>",
	Short: "Retitle a todo, migrating its storage key when needed",
	Long: `Change a todo's title.

When the new title slugs to a different storage key, the document is
migrated: the new key is probed for collisions, the document is written
there, and the old one is deleted. The date component of the original
key is kept. When the slug is unchanged, only the title is updated in
place.`,
	Args: cobra.ExactArgs(2),
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

		if err := app.engine.RenameIfNeeded(ctx, args[0], args[1]); err != nil {
			fatalf("Error renaming %s: %v\n", args[0], err)
		}

		fmt.Printf("%s Renamed to %q\n", ui.RenderPass("✓"), args[1])
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
