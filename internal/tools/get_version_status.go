package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetVersionStatusTool handles the cribl_getVersionStatus MCP tool.
type GetVersionStatusTool struct {
	api CriblAPI
}

// NewGetVersionStatusTool creates a GetVersionStatusTool.
func NewGetVersionStatusTool(api CriblAPI) *GetVersionStatusTool {
	return &GetVersionStatusTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetVersionStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_getVersionStatus",
		mcp.WithDescription("Show uncommitted configuration changes of a Cribl Worker Group."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
	)
}

// Handle processes the cribl_getVersionStatus tool call.
func (t *GetVersionStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.GetVersionStatus(ctx, group)
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching version status for group %s: %s", group, env.Error)), nil
	}
	return jsonResult(env.Data)
}
