package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete a todo permanently",
	Long: `Delete the todo at the given storage path from the remote store.

This is permanent as far as the collection is concerned; recovering the
document means digging through the store's history. A confirmation
prompt guards the operation unless --yes is passed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s?", args[0])).
					Description("The document is removed from the remote store.").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				fatalf("Error: %v\n", err)
			}
			if !confirmed {
				fmt.Println("Aborted")
				return
			}
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

		if err := app.engine.Delete(ctx, args[0]); err != nil {
			fatalf("Error deleting %s: %v\n", args[0], err)
		}

		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
