package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cribl-bridge/internal/cribl"
)

// ListWorkerGroupsTool handles the cribl_listWorkerGroups MCP tool.
type ListWorkerGroupsTool struct {
	api CriblAPI
}

// NewListWorkerGroupsTool creates a ListWorkerGroupsTool.
func NewListWorkerGroupsTool(api CriblAPI) *ListWorkerGroupsTool {
	return &ListWorkerGroupsTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *ListWorkerGroupsTool) Definition() mcp.Tool {
	return mcp.NewTool("cribl_listWorkerGroups",
		mcp.WithDescription("List Cribl Worker Groups (Stream), Fleets (Edge) or Search groups."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("productType",
			mcp.Description("Filter groups by product type (stream, edge, search, all). Defaults to stream."),
			mcp.Enum(string(cribl.ProductStream), string(cribl.ProductEdge), string(cribl.ProductSearch), string(cribl.ProductAll)),
			mcp.DefaultString(string(cribl.ProductStream)),
		),
	)
}

// Handle processes the cribl_listWorkerGroups tool call.
func (t *ListWorkerGroupsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	product := cribl.ProductType(req.GetString("productType", string(cribl.ProductStream)))
	switch product {
	case cribl.ProductStream, cribl.ProductEdge, cribl.ProductSearch, cribl.ProductAll:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Invalid productType '%s'. Use one of: stream, edge, search, all.", product)), nil
	}

	list := t.api.ListWorkerGroups(ctx)
	if !list.Success {
		return mcp.NewToolResultError("Error listing worker groups: " + list.Error), nil
	}

	groups := make([]cribl.WorkerGroup, 0, len(list.Data))
	for _, g := range list.Data {
		if g.Matches(product) {
			groups = append(groups, g)
		}
	}
	return jsonResult(groups)
}
