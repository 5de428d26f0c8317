// Package tools implements the MCP tools exposed by the bridge.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the mcp.Tool schema and Handle processing a call. One file per tool.
// Tools depend on the CriblAPI interface, not on the HTTP client.
//
// API failures are reported to the agent as tool errors carrying the
// normalized message; Handle returns a Go error only when the result
// itself cannot be produced.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cribl-bridge/internal/cribl"
)

// CriblAPI is the set of Cribl operations the tools use.
// *cribl.Client satisfies it.
type CriblAPI interface {
	ListWorkerGroups(ctx context.Context) cribl.Envelope[[]cribl.WorkerGroup]
	GetPipelines(ctx context.Context, group string) cribl.Envelope[[]cribl.Pipeline]
	GetPipeline(ctx context.Context, group, id string) cribl.Envelope[*cribl.Pipeline]
	SetPipelineConfig(ctx context.Context, group, id string, conf map[string]any) cribl.Envelope[*cribl.Pipeline]
	GetSources(ctx context.Context, group string) cribl.Envelope[[]cribl.Source]
	RestartWorkerGroup(ctx context.Context, group string) cribl.Envelope[string]
	GetSystemMetrics(ctx context.Context, group string, q cribl.MetricsQuery) cribl.Envelope[json.RawMessage]
	GetVersionStatus(ctx context.Context, group string) cribl.Envelope[*cribl.VersionStatus]
	CommitChanges(ctx context.Context, group, message string, files []string) cribl.Envelope[*cribl.CommitResult]
	DeployCommit(ctx context.Context, group, version string) cribl.Envelope[*cribl.WorkerGroup]
}

var _ CriblAPI = (*cribl.Client)(nil)

// groupNameDescription is shared by every tool taking an optional group.
const groupNameDescription = "Optional: The name of the Worker Group/Fleet. If omitted, defaults to " +
	"attempting to use Cribl Stream and if only one group exists for Stream, it will use that sole group."

// ResolveGroupName picks the worker group a call targets. A provided name
// must match one of the listed groups. Without a name, the single group of
// the given product is used; none or several is an error naming the options.
func ResolveGroupName(ctx context.Context, api CriblAPI, provided string, product cribl.ProductType) (string, error) {
	list := api.ListWorkerGroups(ctx)
	if !list.Success {
		return "", fmt.Errorf("Failed to list worker groups: %s", list.Error)
	}

	all := groupIDs(list.Data)
	if provided != "" {
		for _, id := range all {
			if id == provided {
				return provided, nil
			}
		}
		return "", fmt.Errorf("Worker group '%s' not found. Available groups are: [%s]", provided, strings.Join(all, ", "))
	}

	var matching []cribl.WorkerGroup
	for _, g := range list.Data {
		if g.Matches(product) {
			matching = append(matching, g)
		}
	}

	switch len(matching) {
	case 1:
		return matching[0].ID, nil
	case 0:
		return "", fmt.Errorf("No worker groups found for default product type '%s'. Please specify a groupName. Available groups are: [%s]",
			product, strings.Join(all, ", "))
	default:
		return "", fmt.Errorf("Multiple worker groups found for default product type '%s': [%s]. Please specify the 'groupName' argument.",
			product, strings.Join(groupIDs(matching), ", "))
	}
}

func groupIDs(groups []cribl.WorkerGroup) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids
}

func pipelineIDs(pipelines []cribl.Pipeline) []string {
	ids := make([]string, 0, len(pipelines))
	for _, p := range pipelines {
		ids = append(ids, p.ID)
	}
	return ids
}

// resolveGroup resolves the "groupName" argument against Stream groups.
// The returned result is non-nil when resolution failed.
func resolveGroup(ctx context.Context, api CriblAPI, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	group, err := ResolveGroupName(ctx, api, strings.TrimSpace(req.GetString("groupName", "")), cribl.ProductStream)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	return group, nil
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg extracts an integer argument (JSON numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringSliceArg extracts an array-of-strings argument, skipping blanks.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// objectArg extracts an object argument. A JSON string holding an object is
// accepted too, since some clients serialize nested arguments.
func objectArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	switch v := req.GetArguments()[key].(type) {
	case map[string]any:
		return v, nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil || obj == nil {
			return nil, fmt.Errorf("'%s' must be a JSON object", key)
		}
		return obj, nil
	case nil:
		return nil, fmt.Errorf("'%s' is required", key)
	default:
		return nil, fmt.Errorf("'%s' must be a JSON object", key)
	}
}
