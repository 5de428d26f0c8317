package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptRequest(args map[string]string) mcp.GetPromptRequest {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = args
	return req
}

func promptText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	if result == nil || len(result.Messages) != 1 {
		t.Fatalf("expected one message, got %+v", result)
	}
	tc, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", result.Messages[0].Content)
	}
	return tc.Text
}

func TestStatusPrompt_DefaultsToAll(t *testing.T) {
	p := NewStatusPrompt()
	if p.Definition().Name != "cribl-status" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	result, err := p.Handle(context.Background(), promptRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := promptText(t, result)
	if !strings.Contains(text, "productType='all'") {
		t.Errorf("expected productType='all' in:\n%s", text)
	}
	for _, tool := range []string{"cribl_listWorkerGroups", "cribl_getPipelines", "cribl_getSources", "cribl_getVersionStatus"} {
		if !strings.Contains(text, tool) {
			t.Errorf("prompt should mention %s", tool)
		}
	}
}

func TestStatusPrompt_ProductType(t *testing.T) {
	result, err := NewStatusPrompt().Handle(context.Background(), promptRequest(map[string]string{"productType": "edge"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := promptText(t, result); !strings.Contains(text, "productType='edge'") {
		t.Errorf("expected productType='edge' in:\n%s", text)
	}
}

func TestPipelineReviewPrompt(t *testing.T) {
	p := NewPipelineReviewPrompt()
	if p.Definition().Name != "cribl-pipeline-review" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	result, err := p.Handle(context.Background(), promptRequest(map[string]string{"pipelineId": "main", "groupName": "prod"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Description != "Review pipeline main" {
		t.Errorf("description = %q", result.Description)
	}
	text := promptText(t, result)
	if !strings.Contains(text, "pipelineId='main', groupName='prod'") {
		t.Errorf("unexpected prompt:\n%s", text)
	}
	if !strings.Contains(text, "until I explicitly approve") {
		t.Error("prompt must forbid writes without approval")
	}
}

func TestPipelineReviewPrompt_DefaultGroup(t *testing.T) {
	result, err := NewPipelineReviewPrompt().Handle(context.Background(), promptRequest(map[string]string{"pipelineId": "main"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := promptText(t, result); !strings.Contains(text, "default Stream group") || strings.Contains(text, "groupName='") {
		t.Errorf("unexpected prompt:\n%s", text)
	}
}

func TestPipelineReviewPrompt_RequiresPipelineID(t *testing.T) {
	if _, err := NewPipelineReviewPrompt().Handle(context.Background(), promptRequest(nil)); err == nil {
		t.Fatal("expected error without pipelineId")
	}
}
