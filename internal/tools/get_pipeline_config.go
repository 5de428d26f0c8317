package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetPipelineConfigTool handles the cribl_getPipelineConfig MCP tool.
// When the pipeline ID is empty or unknown, the error lists the valid IDs
// so the agent can retry without an extra round trip.
type GetPipelineConfigTool struct {
	api CriblAPI
}

// NewGetPipelineConfigTool creates a GetPipelineConfigTool.
func NewGetPipelineConfigTool(api CriblAPI) *GetPipelineConfigTool {
	return &GetPipelineConfigTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetPipelineConfigTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_getPipelineConfig",
		mcp.WithDescription("Get the full configuration of one pipeline in a Cribl Worker Group."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
		mcp.WithString("pipelineId",
			mcp.Required(),
			mcp.Description("The ID of the pipeline to retrieve configuration for."),
		),
	)
}

// Handle processes the cribl_getPipelineConfig tool call.
func (t *GetPipelineConfigTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	id := strings.TrimSpace(req.GetString("pipelineId", ""))
	if id == "" {
		list := t.api.GetPipelines(ctx, group)
		hint := "Failed to retrieve list of valid IDs: " + list.Error
		if list.Success {
			hint = "Valid pipeline IDs are: [" + joinOrNone(pipelineIDs(list.Data)) + "]"
		}
		return mcp.NewToolResultError("Pipeline ID argument is required and cannot be empty. " + hint), nil
	}

	env := t.api.GetPipeline(ctx, group, id)
	if env.Success {
		return jsonResult(env.Data)
	}

	if !isNotFound(env.Error) {
		return mcp.NewToolResultError(env.Error), nil
	}

	list := t.api.GetPipelines(ctx, group)
	if !list.Success {
		return mcp.NewToolResultError(fmt.Sprintf(
			"Pipeline ID '%s' not found in group '%s'. Additionally, failed to retrieve list of valid IDs: %s",
			id, group, list.Error)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("Pipeline ID '%s' not found in group '%s'. Valid pipeline IDs are: [%s]",
		id, group, joinOrNone(pipelineIDs(list.Data)))), nil
}

// isNotFound reports whether a normalized message describes a 404.
func isNotFound(msg string) bool {
	return strings.Contains(msg, "(404)") && strings.Contains(strings.ToLower(msg), "not found")
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "None found"
	}
	return strings.Join(ids, ", ")
}
