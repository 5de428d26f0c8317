package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// SetPipelineConfigTool handles the cribl_setPipelineConfig MCP tool.
type SetPipelineConfigTool struct {
	api CriblAPI
}

// NewSetPipelineConfigTool creates a SetPipelineConfigTool.
func NewSetPipelineConfigTool(api CriblAPI) *SetPipelineConfigTool {
	return &SetPipelineConfigTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *SetPipelineConfigTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_setPipelineConfig",
		mcp.WithDescription(
			"Replace the configuration of a pipeline in a Cribl Worker Group. "+
				"Changes are staged on the leader; commit and deploy them to reach the workers.",
		),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
		mcp.WithString("pipelineId",
			mcp.Required(),
			mcp.Description("The ID of the pipeline to configure."),
		),
		mcp.WithObject("config",
			mcp.Required(),
			mcp.Description(
				"The pipeline configuration payload expected by the API, typically structured as "+
					"{ id: 'pipeline-id', conf: { ... actual config ... } }. "+
					"The id is filled in from pipelineId when missing.",
			),
		),
	)
}

// Handle processes the cribl_setPipelineConfig tool call.
func (t *SetPipelineConfigTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	id := strings.TrimSpace(req.GetString("pipelineId", ""))
	if id == "" {
		return mcp.NewToolResultError("'pipelineId' is required"), nil
	}
	conf, err := objectArg(req, "config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	env := t.api.SetPipelineConfig(ctx, group, id, conf)
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error setting pipeline config for %s in group %s: %s", id, group, env.Error)), nil
	}

	data, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully updated config for pipeline %s in group %s. Response: %s", id, group, data)), nil
}
