package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DeployCommitTool handles the cribl_deployCommit MCP tool.
type DeployCommitTool struct {
	api CriblAPI
}

// NewDeployCommitTool creates a DeployCommitTool.
func NewDeployCommitTool(api CriblAPI) *DeployCommitTool {
	return &DeployCommitTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *DeployCommitTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_deployCommit",
		mcp.WithDescription("Deploy a committed configuration version to the workers of a Cribl Worker Group."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
		mcp.WithString("version",
			mcp.Required(),
			mcp.Description("Commit ID returned by cribl_commitChanges"),
		),
	)
}

// Handle processes the cribl_deployCommit tool call.
func (t *DeployCommitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	version := strings.TrimSpace(req.GetString("version", ""))
	if version == "" {
		return mcp.NewToolResultError("'version' is required"), nil
	}

	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.DeployCommit(ctx, group, version)
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error deploying %s to group %s: %s", version, group, env.Error)), nil
	}
	return jsonResult(env.Data)
}
