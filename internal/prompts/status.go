// Package prompts implements MCP prompt handlers for common Cribl workflows.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a sequence of cribl_* tools. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the cribl-status MCP prompt.
// It asks the AI to survey the deployment: groups, pipelines and sources.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("cribl-status",
		mcp.WithPromptDescription(
			"Survey the Cribl deployment: worker groups, their pipelines and sources, "+
				"and any configuration changes waiting to be committed.",
		),
		mcp.WithArgument("productType",
			mcp.ArgumentDescription("Which groups to survey: stream, edge, search or all. Default: all"),
		),
	)
}

// Handle processes the cribl-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	product := argOr(req, "productType", "all")

	return &mcp.GetPromptResult{
		Description: "Cribl deployment status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please give me a status overview of my Cribl deployment.\n\n"+
						"1. Run `cribl_listWorkerGroups` with productType='%s'\n"+
						"2. For each group, run `cribl_getPipelines` and `cribl_getSources` with its groupName\n"+
						"3. For each group, run `cribl_getVersionStatus` to find uncommitted changes\n"+
						"4. Present a compact table per group: worker count, config version, pipelines, "+
						"enabled/disabled sources, pending changes\n"+
						"5. Point out anything that looks wrong (disabled sources, groups with no workers, "+
						"sources routed to missing pipelines)\n\n"+
						"If a call fails, show me the error message as returned and continue with the other groups.",
					product,
				)),
			},
		},
	}, nil
}

// argOr returns the named prompt argument, or def when it is missing or empty.
func argOr(req mcp.GetPromptRequest, name, def string) string {
	if args := req.Params.Arguments; args != nil {
		if v, ok := args[name]; ok && v != "" {
			return v
		}
	}
	return def
}
