// Package prompts implements MCP prompt handlers for the document store.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// DraftPrompt handles the draft-document MCP prompt.
// It guides the AI from a rough topic to a structured, sectioned document.
type DraftPrompt struct{}

// NewDraftPrompt creates a DraftPrompt.
func NewDraftPrompt() *DraftPrompt {
	return &DraftPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *DraftPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("draft-document",
		mcp.WithPromptDescription(
			"Draft a new structured document. "+
				"Guides you from a topic to a sectioned document with an outline, "+
				"nested sections, and optional links to tasks, facts, or GitHub resources.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the document should cover"),
		),
		mcp.WithArgument("audience",
			mcp.ArgumentDescription("Who the document is for. Default: teammates"),
		),
	)
}

// Handle processes the draft-document prompt request.
func (p *DraftPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := "a topic of my choice"
	audience := "teammates"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["topic"]; ok && v != "" {
			topic = v
		}
		if v, ok := args["audience"]; ok && v != "" {
			audience = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft document: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to draft a structured document about '%s' for %s.\n\n"+
						"Please:\n"+
						"1. Propose an outline (top-level sections with one-line summaries) and ask me to confirm or adjust it\n"+
						"2. Once I confirm, run `create_document` with the title and the outline as initial_sections\n"+
						"3. Flesh out each section with `update_section`, nesting subsections with `create_section` where the material calls for it\n"+
						"4. If we mention tasks, facts, or GitHub resources along the way, attach them with `link_section`\n"+
						"5. When I'm happy with the draft, offer `export_document` for a Markdown preview or `export_to_github` to publish it",
					topic, audience,
				)),
			},
		},
	}, nil
}
