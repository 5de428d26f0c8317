package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// RestartWorkerGroupTool handles the cribl_restartWorkerGroup MCP tool.
type RestartWorkerGroupTool struct {
	api CriblAPI
}

// NewRestartWorkerGroupTool creates a RestartWorkerGroupTool.
func NewRestartWorkerGroupTool(api CriblAPI) *RestartWorkerGroupTool {
	return &RestartWorkerGroupTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *RestartWorkerGroupTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_restartWorkerGroup",
		mcp.WithDescription("Restart every worker of a Cribl Worker Group."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
	)
}

// Handle processes the cribl_restartWorkerGroup tool call.
func (t *RestartWorkerGroupTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.RestartWorkerGroup(ctx, group)
	if !env.Success {
		return mcp.NewToolResultError("Error restarting workers: " + env.Error), nil
	}
	return mcp.NewToolResultText(env.Data), nil
}
