package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/gitodo/internal/todo"
	"github.com/example/gitodo/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan <path>",
	Short: "Generate an action plan for a todo",
	Long: `Generate a markdown action plan for the todo at the given path.

With ANTHROPIC_API_KEY set the plan comes from the configured model;
otherwise a static checklist skeleton is produced so the flow works
offline.

By default the plan is printed. With --apply it is appended to the
todo's body and saved, and the exchange is recorded in the todo's chat
history.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		apply, _ := cmd.Flags().GetBool("apply")

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

		goal := t.Title
		if body := strings.TrimSpace(t.Content); body != "" {
			goal += "\n\n" + body
		}

		plan, err := planner(app.cfg).GeneratePlan(ctx, goal)
		if err != nil {
			fatalf("Error generating plan: %v\n", err)
		}

		if !apply {
			fmt.Printf("\n%s\n", plan)
			return
		}

		content := t.Content
		if strings.TrimSpace(content) != "" {
			content = strings.TrimRight(content, "\n") + "\n\n"
		}
		content += plan + "\n"

		history := append(append([]todo.ChatMessage(nil), t.Frontmatter.ChatHistory...),
			todo.ChatMessage{Role: "user", Content: "Plan: " + t.Title},
			todo.ChatMessage{Role: "assistant", Content: plan},
		)

		if err := app.engine.SaveNow(ctx, args[0], content, history); err != nil {
			fatalf("Error saving plan to %s: %v\n", args[0], err)
		}

		fmt.Printf("%s Plan saved to %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	planCmd.Flags().Bool("apply", false, "Append the plan to the todo and save it")
	rootCmd.AddCommand(planCmd)
}
