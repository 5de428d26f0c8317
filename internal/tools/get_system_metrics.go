package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cribl-bridge/internal/cribl"
)

// GetSystemMetricsTool handles the cribl_getSystemMetrics MCP tool.
type GetSystemMetricsTool struct {
	api CriblAPI
}

// NewGetSystemMetricsTool creates a GetSystemMetricsTool.
func NewGetSystemMetricsTool(api CriblAPI) *GetSystemMetricsTool {
	return &GetSystemMetricsTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetSystemMetricsTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_getSystemMetrics",
		mcp.WithDescription("Get system metrics (throughput, events in/out, resource usage) of a Cribl Worker Group."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("groupName", mcp.Description(groupNameDescription)),
		mcp.WithString("filterExpr",
			mcp.Description(`Optional JavaScript filter on metric names, e.g. name.startsWith("total.")`),
		),
		mcp.WithNumber("numBuckets",
			mcp.Description("Optional number of time buckets to return"),
		),
	)
}

// Handle processes the cribl_getSystemMetrics tool call.
func (t *GetSystemMetricsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, failed := resolveGroup(ctx, t.api, req)
	if failed != nil {
		return failed, nil
	}

	env := t.api.GetSystemMetrics(ctx, group, cribl.MetricsQuery{
		FilterExpr: req.GetString("filterExpr", ""),
		NumBuckets: intArg(req, "numBuckets", 0),
	})
	if !env.Success {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching system metrics for group %s: %s", group, env.Error)), nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, env.Data, "", "  "); err != nil {
		return nil, fmt.Errorf("formatting metrics: %w", err)
	}
	return mcp.NewToolResultText(out.String()), nil
}
