package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// CommitChangesTool handles the cribl_commitChanges MCP tool.
type CommitChangesTool struct {
	api CriblAPI
}

// NewCommitChangesTool creates a CommitChangesTool.
func NewCommitChangesTool(api CriblAPI) *CommitChangesTool {
	return &CommitChangesTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *CommitChangesTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_commitChanges",
		mcp.WithDescription(
			"Commit pending configuration changes of a Cribl Worker Group. "+
				"Returns the commit ID to pass to cribl_deployCommit.",
		),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Commit message describing the change"),
		),
		mcp.WithArray("files",
			mcp.Description("Optional list of changed files to commit; all pending changes when omitted"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// Handle processes the cribl_commitChanges tool call.
func (t *CommitChangesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := strings.TrimSpace(req.GetString("message", ""))
	if message == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}

	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.CommitChanges(ctx, group, message, stringSliceArg(req, "files"))
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error committing changes for group %s: %s", group, env.Error)), nil
	}
	return jsonResult(env.Data)
}
