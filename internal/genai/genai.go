// Package genai provides the AI generation service used for todo plans and
// commit messages.
//
// The service is an opaque collaborator of the engine: callers get text
// back and never inspect how it was produced. When no API key is
// configured the static fallback keeps every flow working offline.
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Service generates content for todos.
type Service interface {
	// GeneratePlan produces a markdown action plan for a goal.
	GeneratePlan(ctx context.Context, goal string) (string, error)

	// GenerateCommitMessage produces a one-line commit message for a
	// change description.
	GenerateCommitMessage(ctx context.Context, description string) (string, error)
}

const planSystemPrompt = `You are a planning assistant for a todo manager.
Given a goal, produce a concise markdown plan: a one-paragraph summary
followed by a checklist of concrete steps. Output markdown only.`

const commitSystemPrompt = `You write git commit messages for a todo manager.
Given a change description, reply with a single imperative-mood subject
line under 72 characters. No body, no quotes.`

// Anthropic is the Claude-backed implementation of Service.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropic creates a service using the given API key and model name.
func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// GeneratePlan implements Service.
func (a *Anthropic) GeneratePlan(ctx context.Context, goal string) (string, error) {
	text, err := a.complete(ctx, planSystemPrompt, goal, 1024)
	if err != nil {
		return "", fmt.Errorf("failed to generate plan: %w", err)
	}
	return text, nil
}

// GenerateCommitMessage implements Service.
func (a *Anthropic) GenerateCommitMessage(ctx context.Context, description string) (string, error) {
	text, err := a.complete(ctx, commitSystemPrompt, description, 128)
	if err != nil {
		return "", fmt.Errorf("failed to generate commit message: %w", err)
	}
	// The model occasionally wraps the subject in quotes anyway.
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text, nil
}

func (a *Anthropic) complete(ctx context.Context, system, prompt string, maxTokens int64) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Static is the offline fallback Service. Plans become a bare checklist
// skeleton and commit messages echo the description.
type Static struct{}

// GeneratePlan implements Service.
func (Static) GeneratePlan(ctx context.Context, goal string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", goal)
	b.WriteString("## Plan\n\n")
	b.WriteString("- [ ] Break the goal into concrete steps\n")
	b.WriteString("- [ ] Do the first step\n")
	b.WriteString("- [ ] Review and iterate\n")
	return b.String(), nil
}

// GenerateCommitMessage implements Service.
func (Static) GenerateCommitMessage(ctx context.Context, description string) (string, error) {
	msg := strings.TrimSpace(description)
	if msg == "" {
		msg = "Update todo"
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > 72 {
		msg = strings.TrimSpace(msg[:72])
	}
	return msg, nil
}
