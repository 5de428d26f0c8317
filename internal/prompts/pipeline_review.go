package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// PipelineReviewPrompt handles the cribl-pipeline-review MCP prompt.
// It guides the AI through reviewing one pipeline and, if the user agrees,
// staging, committing and deploying a fix.
type PipelineReviewPrompt struct{}

// NewPipelineReviewPrompt creates a PipelineReviewPrompt.
func NewPipelineReviewPrompt() *PipelineReviewPrompt {
	return &PipelineReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *PipelineReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("cribl-pipeline-review",
		mcp.WithPromptDescription(
			"Review the configuration of a Cribl pipeline and suggest improvements. "+
				"Nothing is changed without your confirmation.",
		),
		mcp.WithArgument("pipelineId",
			mcp.ArgumentDescription("ID of the pipeline to review"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("groupName",
			mcp.ArgumentDescription("Worker group of the pipeline. Default: the only Stream group"),
		),
	)
}

// Handle processes the cribl-pipeline-review prompt request.
func (p *PipelineReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pipelineID := argOr(req, "pipelineId", "")
	if pipelineID == "" {
		return nil, fmt.Errorf("pipelineId argument is required")
	}

	target := "the default Stream group (omit groupName)"
	groupArg := ""
	if group := argOr(req, "groupName", ""); group != "" {
		target = fmt.Sprintf("group '%s'", group)
		groupArg = fmt.Sprintf(", groupName='%s'", group)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review pipeline %s", pipelineID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please review pipeline '%s' in %s.\n\n"+
						"1. Run `cribl_getPipelineConfig` with pipelineId='%s'%s\n"+
						"2. Explain what the pipeline does, function by function\n"+
						"3. Flag disabled functions, functions with no filter, expensive regexes "+
						"and anything that drops or duplicates events unexpectedly\n"+
						"4. Propose concrete changes as a full pipeline config\n\n"+
						"Do NOT call `cribl_setPipelineConfig`, `cribl_commitChanges` or `cribl_deployCommit` "+
						"until I explicitly approve the proposed change.",
					pipelineID, target, pipelineID, groupArg,
				)),
			},
		},
	}, nil
}
