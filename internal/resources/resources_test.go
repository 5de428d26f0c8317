package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cribl-bridge/internal/cribl"
)

type fakeLister struct {
	env cribl.Envelope[[]cribl.WorkerGroup]
}

func (f fakeLister) ListWorkerGroups(context.Context) cribl.Envelope[[]cribl.WorkerGroup] {
	return f.env
}

func readRequest() mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = WorkerGroupsURI
	return req
}

func TestHandleWorkerGroups(t *testing.T) {
	h := NewHandler(fakeLister{env: cribl.Ok([]cribl.WorkerGroup{
		{ID: "default", WorkerCount: 2, ConfigVersion: "abc"},
		{ID: "fleet", IsFleet: true},
	})})

	contents, err := h.HandleWorkerGroups(context.Background(), readRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content is %T", contents[0])
	}
	if text.MIMEType != "application/json" || text.URI != WorkerGroupsURI {
		t.Errorf("MIMEType=%q URI=%q", text.MIMEType, text.URI)
	}

	var got []groupSummary
	if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[0].Product != cribl.ProductStream || got[1].Product != cribl.ProductEdge {
		t.Errorf("unexpected summaries: %+v", got)
	}
	if got[0].WorkerCount != 2 || got[0].ConfigVersion != "abc" {
		t.Errorf("unexpected first group: %+v", got[0])
	}
}

func TestHandleWorkerGroups_APIError(t *testing.T) {
	h := NewHandler(fakeLister{env: cribl.Fail[[]cribl.WorkerGroup]("API Error (401) during credential refresh (login): bad password")})

	contents, err := h.HandleWorkerGroups(context.Background(), readRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.MIMEType != "text/plain" {
		t.Errorf("MIMEType = %q, want text/plain", text.MIMEType)
	}
	if text.Text != "Error: API Error (401) during credential refresh (login): bad password" {
		t.Errorf("Text = %q", text.Text)
	}
}

func TestWorkerGroupsResource(t *testing.T) {
	r := NewHandler(fakeLister{}).WorkerGroupsResource()
	if r.URI != WorkerGroupsURI || r.MIMEType != "application/json" {
		t.Errorf("unexpected resource: %+v", r)
	}
}
