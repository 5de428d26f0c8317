package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetSourcesTool handles the cribl_getSources MCP tool.
type GetSourcesTool struct {
	api CriblAPI
}

// NewGetSourcesTool creates a GetSourcesTool.
func NewGetSourcesTool(api CriblAPI) *GetSourcesTool {
	return &GetSourcesTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetSourcesTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_getSources",
		mcp.WithDescription("List the data sources (inputs) configured in a Cribl Worker Group."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
	)
}

// Handle processes the cribl_getSources tool call.
func (t *GetSourcesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.GetSources(ctx, group)
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching sources for group %s: %s", group, env.Error)), nil
	}
	return jsonResult(env.Data)
}
