// Package resources implements MCP resource handlers for the bridge.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (cribl://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cribl-bridge/internal/cribl"
)

// WorkerGroupsURI addresses the worker group listing.
const WorkerGroupsURI = "cribl://worker-groups"

// GroupLister lists worker groups. *cribl.Client satisfies it.
type GroupLister interface {
	ListWorkerGroups(ctx context.Context) cribl.Envelope[[]cribl.WorkerGroup]
}

// Handler manages Cribl resource endpoints.
type Handler struct {
	groups GroupLister
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(groups GroupLister) *Handler {
	return &Handler{groups: groups}
}

// WorkerGroupsResource returns the MCP resource definition for the group listing.
func (h *Handler) WorkerGroupsResource() mcp.Resource {
	return mcp.NewResource(
		WorkerGroupsURI,
		"Cribl Worker Groups",
		mcp.WithResourceDescription("All worker groups and fleets of the Cribl leader, with their product type"),
		mcp.WithMIMEType("application/json"),
	)
}

// groupSummary is one entry of the worker group listing.
type groupSummary struct {
	ID            string            `json:"id"`
	Product       cribl.ProductType `json:"product"`
	Description   string            `json:"description,omitempty"`
	WorkerCount   int               `json:"workerCount"`
	ConfigVersion string            `json:"configVersion,omitempty"`
}

// HandleWorkerGroups returns every worker group as JSON. API failures are
// returned as a text resource carrying the normalized message.
func (h *Handler) HandleWorkerGroups(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list := h.groups.ListWorkerGroups(ctx)
	if !list.Success {
		return errorResource(req.Params.URI, list.Error), nil
	}

	summaries := make([]groupSummary, 0, len(list.Data))
	for _, g := range list.Data {
		summaries = append(summaries, groupSummary{
			ID:            g.ID,
			Product:       g.Product(),
			Description:   g.Description,
			WorkerCount:   g.WorkerCount,
			ConfigVersion: g.ConfigVersion,
		})
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling worker groups: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
