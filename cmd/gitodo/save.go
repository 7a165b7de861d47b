package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/ui"
)

var saveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Save new content for a todo",
	Long: `Write new content to the todo at the given storage path.

Content is read from --file, or from stdin when no file is given. A
payload with a leading frontmatter block replaces the document's
metadata; a plain markdown payload keeps the existing frontmatter and
replaces only the body.

The write carries the current version token. On a conflict the token is
refreshed and the write retried, up to three attempts in total.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")

		content, err := readPayload(file)
		if err != nil {
			fatalf("Error: %v\n", err)
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

		if err := app.engine.SaveNow(ctx, args[0], content, nil); err != nil {
			fatalf("Error saving %s: %v\n", args[0], err)
		}

		fmt.Printf("%s Saved %s\n", ui.RenderPass("✓"), args[0])
	},
}

func readPayload(file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty payload: pass --file or pipe content to stdin")
	}
	return string(data), nil
}

func init() {
	saveCmd.Flags().StringP("file", "f", "", "Read content from a file instead of stdin")
	rootCmd.AddCommand(saveCmd)
}
