package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetPipelinesTool handles the cribl_getPipelines MCP tool.
type GetPipelinesTool struct {
	api CriblAPI
}

// NewGetPipelinesTool creates a GetPipelinesTool.
func NewGetPipelinesTool(api CriblAPI) *GetPipelinesTool {
	return &GetPipelinesTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetPipelinesTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_getPipelines",
		mcp.WithDescription("List the pipelines configured in a Cribl Worker Group."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
	)
}

// Handle processes the cribl_getPipelines tool call.
func (t *GetPipelinesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.GetPipelines(ctx, group)
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching pipelines for group %s: %s", group, env.Error)), nil
	}
	return jsonResult(env.Data)
}
