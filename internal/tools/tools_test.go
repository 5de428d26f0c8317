package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cribl-bridge/internal/cribl"
)

// --- Test helpers ---

// fakeAPI is a CriblAPI with canned answers. Zero-value envelopes are
// failures, so every test sets exactly what it exercises.
type fakeAPI struct {
	groups    cribl.Envelope[[]cribl.WorkerGroup]
	pipelines cribl.Envelope[[]cribl.Pipeline]
	pipeline  cribl.Envelope[*cribl.Pipeline]
	sources   cribl.Envelope[[]cribl.Source]
	restart   cribl.Envelope[string]
	metrics   cribl.Envelope[json.RawMessage]
	status    cribl.Envelope[*cribl.VersionStatus]
	commit    cribl.Envelope[*cribl.CommitResult]
	deploy    cribl.Envelope[*cribl.WorkerGroup]

	// recorded arguments
	group       string
	pipelineID  string
	conf        map[string]any
	query       cribl.MetricsQuery
	message     string
	files       []string
	version     string
	listedGroup int
}

func (f *fakeAPI) ListWorkerGroups(context.Context) cribl.Envelope[[]cribl.WorkerGroup] {
	f.listedGroup++
	return f.groups
}

func (f *fakeAPI) GetPipelines(_ context.Context, group string) cribl.Envelope[[]cribl.Pipeline] {
	f.group = group
	return f.pipelines
}

func (f *fakeAPI) GetPipeline(_ context.Context, group, id string) cribl.Envelope[*cribl.Pipeline] {
	f.group, f.pipelineID = group, id
	return f.pipeline
}

func (f *fakeAPI) SetPipelineConfig(_ context.Context, group, id string, conf map[string]any) cribl.Envelope[*cribl.Pipeline] {
	f.group, f.pipelineID, f.conf = group, id, conf
	return f.pipeline
}

func (f *fakeAPI) GetSources(_ context.Context, group string) cribl.Envelope[[]cribl.Source] {
	f.group = group
	return f.sources
}

func (f *fakeAPI) RestartWorkerGroup(_ context.Context, group string) cribl.Envelope[string] {
	f.group = group
	return f.restart
}

func (f *fakeAPI) GetSystemMetrics(_ context.Context, group string, q cribl.MetricsQuery) cribl.Envelope[json.RawMessage] {
	f.group, f.query = group, q
	return f.metrics
}

func (f *fakeAPI) GetVersionStatus(_ context.Context, group string) cribl.Envelope[*cribl.VersionStatus] {
	f.group = group
	return f.status
}

func (f *fakeAPI) CommitChanges(_ context.Context, group, message string, files []string) cribl.Envelope[*cribl.CommitResult] {
	f.group, f.message, f.files = group, message, files
	return f.commit
}

func (f *fakeAPI) DeployCommit(_ context.Context, group, version string) cribl.Envelope[*cribl.WorkerGroup] {
	f.group, f.version = group, version
	return f.deploy
}

// oneStreamGroup is a leader with a single Stream group and an Edge fleet.
func oneStreamGroup() *fakeAPI {
	return &fakeAPI{groups: cribl.Ok([]cribl.WorkerGroup{
		{ID: "default"},
		{ID: "default_fleet", IsFleet: true},
	})}
}

func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustSucceed(t *testing.T, result *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("unexpected tool error: %s", getResultText(result))
	}
	return getResultText(result)
}

func mustFail(t *testing.T, result *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatalf("expected tool error, got: %s", getResultText(result))
	}
	return getResultText(result)
}

// --- ResolveGroupName ---

func TestResolveGroupName(t *testing.T) {
	groups := []cribl.WorkerGroup{
		{ID: "default"},
		{ID: "fleet_a", IsFleet: true},
		{ID: "fleet_b", IsFleet: true},
		{ID: "default_search", IsSearch: true},
	}

	tests := []struct {
		name     string
		provided string
		product  cribl.ProductType
		want     string
		wantErr  string
	}{
		{name: "provided and known", provided: "fleet_a", product: cribl.ProductStream, want: "fleet_a"},
		{name: "provided and unknown", provided: "nope", product: cribl.ProductStream,
			wantErr: "Worker group 'nope' not found. Available groups are: [default, fleet_a, fleet_b, default_search]"},
		{name: "single stream default", product: cribl.ProductStream, want: "default"},
		{name: "single search default", product: cribl.ProductSearch, want: "default_search"},
		{name: "ambiguous edge default", product: cribl.ProductEdge,
			wantErr: "Multiple worker groups found for default product type 'edge': [fleet_a, fleet_b]. Please specify the 'groupName' argument."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{groups: cribl.Ok(groups)}
			got, err := ResolveGroupName(context.Background(), api, tt.provided, tt.product)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("group = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveGroupName_NoMatch(t *testing.T) {
	api := &fakeAPI{groups: cribl.Ok([]cribl.WorkerGroup{{ID: "fleet", IsFleet: true}})}
	_, err := ResolveGroupName(context.Background(), api, "", cribl.ProductStream)
	want := "No worker groups found for default product type 'stream'. Please specify a groupName. Available groups are: [fleet]"
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
}

func TestResolveGroupName_ListFails(t *testing.T) {
	api := &fakeAPI{groups: cribl.Fail[[]cribl.WorkerGroup]("API Error during list worker groups: no response received from server")}
	_, err := ResolveGroupName(context.Background(), api, "default", cribl.ProductStream)
	want := "Failed to list worker groups: API Error during list worker groups: no response received from server"
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
}

// --- ListWorkerGroupsTool ---

func TestListWorkerGroupsTool_DefaultsToStream(t *testing.T) {
	tool := NewListWorkerGroupsTool(oneStreamGroup())
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{}))
	text := mustSucceed(t, result, err)

	var groups []map[string]any
	if err := json.Unmarshal([]byte(text), &groups); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, text)
	}
	if len(groups) != 1 || groups[0]["id"] != "default" {
		t.Errorf("groups = %v, want only default", groups)
	}
}

func TestListWorkerGroupsTool_All(t *testing.T) {
	tool := NewListWorkerGroupsTool(oneStreamGroup())
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{"productType": "all"}))
	text := mustSucceed(t, result, err)
	if !strings.Contains(text, "default_fleet") || !strings.Contains(text, `"id": "default"`) {
		t.Errorf("expected both groups, got:\n%s", text)
	}
}

func TestListWorkerGroupsTool_EmptyFilterIsEmptyArray(t *testing.T) {
	tool := NewListWorkerGroupsTool(oneStreamGroup())
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{"productType": "search"}))
	if text := mustSucceed(t, result, err); text != "[]" {
		t.Errorf("text = %q, want []", text)
	}
}

func TestListWorkerGroupsTool_InvalidProduct(t *testing.T) {
	tool := NewListWorkerGroupsTool(oneStreamGroup())
	result, err := tool.Handle(context.Background(), newRequest(map[string]interface{}{"productType": "lake"}))
	if text := mustFail(t, result, err); !strings.Contains(text, "Invalid productType 'lake'") {
		t.Errorf("unexpected error text: %s", text)
	}
}

func TestListWorkerGroupsTool_APIError(t *testing.T) {
	api := &fakeAPI{groups: cribl.Fail[[]cribl.WorkerGroup]("API Error (500) during list worker groups: boom")}
	result, err := NewListWorkerGroupsTool(api).Handle(context.Background(), newRequest(nil))
	if text := mustFail(t, result, err); text != "Error listing worker groups: API Error (500) during list worker groups: boom" {
		t.Errorf("text = %q", text)
	}
}

// --- Group-scoped listing tools ---

func TestGetPipelinesTool(t *testing.T) {
	api := oneStreamGroup()
	api.pipelines = cribl.Ok([]cribl.Pipeline{{ID: "main"}, {ID: "passthru"}})

	result, err := NewGetPipelinesTool(api).Handle(context.Background(), newRequest(nil))
	text := mustSucceed(t, result, err)
	if api.group != "default" {
		t.Errorf("group = %q, want default", api.group)
	}
	if !strings.Contains(text, `"id": "passthru"`) {
		t.Errorf("unexpected result:\n%s", text)
	}
}

func TestGetPipelinesTool_UnknownGroup(t *testing.T) {
	api := oneStreamGroup()
	result, err := NewGetPipelinesTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"groupName": "prod"}))
	text := mustFail(t, result, err)
	if text != "Worker group 'prod' not found. Available groups are: [default, default_fleet]" {
		t.Errorf("text = %q", text)
	}
	if api.group != "" {
		t.Error("pipelines must not be fetched for an unknown group")
	}
}

func TestGetPipelinesTool_APIError(t *testing.T) {
	api := oneStreamGroup()
	api.pipelines = cribl.Fail[[]cribl.Pipeline]("API Error (403) during fetch pipelines for group default: Forbidden")
	result, err := NewGetPipelinesTool(api).Handle(context.Background(), newRequest(nil))
	text := mustFail(t, result, err)
	if text != "Error fetching pipelines for group default: API Error (403) during fetch pipelines for group default: Forbidden" {
		t.Errorf("text = %q", text)
	}
}

func TestGetSourcesTool(t *testing.T) {
	api := oneStreamGroup()
	api.sources = cribl.Ok([]cribl.Source{{ID: "in_syslog", Type: "syslog"}})

	result, err := NewGetSourcesTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"groupName": "default_fleet"}))
	text := mustSucceed(t, result, err)
	if api.group != "default_fleet" {
		t.Errorf("group = %q, want default_fleet", api.group)
	}
	if !strings.Contains(text, `"type": "syslog"`) {
		t.Errorf("unexpected result:\n%s", text)
	}
}

// --- GetPipelineConfigTool ---

func TestGetPipelineConfigTool_Success(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Ok(&cribl.Pipeline{ID: "main", Conf: map[string]any{"output": "devnull"}})

	result, err := NewGetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"pipelineId": "main"}))
	text := mustSucceed(t, result, err)
	if api.pipelineID != "main" || !strings.Contains(text, `"output": "devnull"`) {
		t.Errorf("unexpected call or result: id=%q\n%s", api.pipelineID, text)
	}
}

func TestGetPipelineConfigTool_EmptyIDListsValidIDs(t *testing.T) {
	api := oneStreamGroup()
	api.pipelines = cribl.Ok([]cribl.Pipeline{{ID: "main"}, {ID: "passthru"}})

	result, err := NewGetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"pipelineId": "  "}))
	text := mustFail(t, result, err)
	want := "Pipeline ID argument is required and cannot be empty. Valid pipeline IDs are: [main, passthru]"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestGetPipelineConfigTool_EmptyIDNoPipelines(t *testing.T) {
	api := oneStreamGroup()
	api.pipelines = cribl.Ok([]cribl.Pipeline{})

	result, err := NewGetPipelineConfigTool(api).Handle(context.Background(), newRequest(nil))
	if text := mustFail(t, result, err); !strings.HasSuffix(text, "Valid pipeline IDs are: [None found]") {
		t.Errorf("text = %q", text)
	}
}

func TestGetPipelineConfigTool_NotFoundListsValidIDs(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Fail[*cribl.Pipeline]("API Error (404) during fetch pipeline nope in group default: Item not found")
	api.pipelines = cribl.Ok([]cribl.Pipeline{{ID: "main"}})

	result, err := NewGetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"pipelineId": "nope"}))
	text := mustFail(t, result, err)
	want := "Pipeline ID 'nope' not found in group 'default'. Valid pipeline IDs are: [main]"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestGetPipelineConfigTool_NotFoundAndListFails(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Fail[*cribl.Pipeline]("API Error (404) during fetch pipeline nope in group default: Not Found")
	api.pipelines = cribl.Fail[[]cribl.Pipeline]("API Error during fetch pipelines for group default: no response received from server")

	result, err := NewGetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"pipelineId": "nope"}))
	text := mustFail(t, result, err)
	if !strings.Contains(text, "Additionally, failed to retrieve list of valid IDs: API Error during fetch pipelines") {
		t.Errorf("text = %q", text)
	}
}

func TestGetPipelineConfigTool_OtherErrorPassesThrough(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Fail[*cribl.Pipeline]("API Error (500) during fetch pipeline main in group default: boom")

	result, err := NewGetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"pipelineId": "main"}))
	if text := mustFail(t, result, err); text != "API Error (500) during fetch pipeline main in group default: boom" {
		t.Errorf("text = %q", text)
	}
}

// --- SetPipelineConfigTool ---

func TestSetPipelineConfigTool_Success(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Ok(&cribl.Pipeline{ID: "main", Conf: map[string]any{"output": "devnull"}})

	result, err := NewSetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{
		"pipelineId": "main",
		"config":     map[string]interface{}{"conf": map[string]interface{}{"output": "devnull"}},
	}))
	text := mustSucceed(t, result, err)
	if !strings.HasPrefix(text, "Successfully updated config for pipeline main in group default. Response: {") {
		t.Errorf("text = %q", text)
	}
	if api.conf["conf"] == nil {
		t.Errorf("config not passed through: %v", api.conf)
	}
}

func TestSetPipelineConfigTool_ConfigAsJSONString(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Ok(&cribl.Pipeline{ID: "main"})

	result, err := NewSetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{
		"pipelineId": "main",
		"config":     `{"id":"main","conf":{}}`,
	}))
	mustSucceed(t, result, err)
	if api.conf["id"] != "main" {
		t.Errorf("config = %v", api.conf)
	}
}

func TestSetPipelineConfigTool_Validation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing id", args: map[string]interface{}{"config": map[string]interface{}{}}, want: "'pipelineId' is required"},
		{name: "missing config", args: map[string]interface{}{"pipelineId": "main"}, want: "'config' is required"},
		{name: "config not object", args: map[string]interface{}{"pipelineId": "main", "config": []interface{}{1}}, want: "'config' must be a JSON object"},
		{name: "config bad string", args: map[string]interface{}{"pipelineId": "main", "config": "{"}, want: "'config' must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := oneStreamGroup()
			result, err := NewSetPipelineConfigTool(api).Handle(context.Background(), newRequest(tt.args))
			if text := mustFail(t, result, err); text != tt.want {
				t.Errorf("text = %q, want %q", text, tt.want)
			}
			if api.pipelineID != "" {
				t.Error("no write may be sent for invalid input")
			}
		})
	}
}

func TestSetPipelineConfigTool_APIError(t *testing.T) {
	api := oneStreamGroup()
	api.pipeline = cribl.Fail[*cribl.Pipeline]("API Error (400) during setPipelineConfig (ID: main, Group: default): bad conf")

	result, err := NewSetPipelineConfigTool(api).Handle(context.Background(), newRequest(map[string]interface{}{
		"pipelineId": "main",
		"config":     map[string]interface{}{},
	}))
	text := mustFail(t, result, err)
	if text != "Error setting pipeline config for main in group default: API Error (400) during setPipelineConfig (ID: main, Group: default): bad conf" {
		t.Errorf("text = %q", text)
	}
}

// --- RestartWorkerGroupTool ---

func TestRestartWorkerGroupTool(t *testing.T) {
	api := oneStreamGroup()
	api.restart = cribl.Ok("Successfully initiated restart for group default. Response status: 200")

	result, err := NewRestartWorkerGroupTool(api).Handle(context.Background(), newRequest(nil))
	if text := mustSucceed(t, result, err); text != "Successfully initiated restart for group default. Response status: 200" {
		t.Errorf("text = %q", text)
	}
}

func TestRestartWorkerGroupTool_APIError(t *testing.T) {
	api := oneStreamGroup()
	api.restart = cribl.Fail[string]("API Error (403) during restartWorkerGroup (Group: default): Forbidden")

	result, err := NewRestartWorkerGroupTool(api).Handle(context.Background(), newRequest(nil))
	if text := mustFail(t, result, err); !strings.HasPrefix(text, "Error restarting workers: API Error (403)") {
		t.Errorf("text = %q", text)
	}
}

// --- GetSystemMetricsTool ---

func TestGetSystemMetricsTool(t *testing.T) {
	api := oneStreamGroup()
	api.metrics = cribl.Ok(json.RawMessage(`{"results":[{"name":"total.in_events","value":42}]}`))

	result, err := NewGetSystemMetricsTool(api).Handle(context.Background(), newRequest(map[string]interface{}{
		"filterExpr": `name.startsWith("total.")`,
		"numBuckets": float64(10),
	}))
	text := mustSucceed(t, result, err)
	if api.query.FilterExpr != `name.startsWith("total.")` || api.query.NumBuckets != 10 {
		t.Errorf("query = %+v", api.query)
	}
	if !strings.Contains(text, "\n  \"results\"") {
		t.Errorf("metrics should be indented:\n%s", text)
	}
}

// --- Version control tools ---

func TestGetVersionStatusTool(t *testing.T) {
	api := oneStreamGroup()
	api.status = cribl.Ok(&cribl.VersionStatus{Branch: "master", Ahead: 2})

	result, err := NewGetVersionStatusTool(api).Handle(context.Background(), newRequest(nil))
	if text := mustSucceed(t, result, err); !strings.Contains(text, `"ahead": 2`) {
		t.Errorf("text = %q", text)
	}
}

func TestCommitChangesTool(t *testing.T) {
	api := oneStreamGroup()
	api.commit = cribl.Ok(&cribl.CommitResult{Commit: "c0ffee01"})

	result, err := NewCommitChangesTool(api).Handle(context.Background(), newRequest(map[string]interface{}{
		"message": "tune main",
		"files":   []interface{}{"pipelines/main/conf.yml", " ", 3},
	}))
	if text := mustSucceed(t, result, err); !strings.Contains(text, `"commit": "c0ffee01"`) {
		t.Errorf("text = %q", text)
	}
	if api.message != "tune main" || len(api.files) != 1 || api.files[0] != "pipelines/main/conf.yml" {
		t.Errorf("message=%q files=%v", api.message, api.files)
	}
}

func TestCommitChangesTool_RequiresMessage(t *testing.T) {
	api := oneStreamGroup()
	result, err := NewCommitChangesTool(api).Handle(context.Background(), newRequest(nil))
	if text := mustFail(t, result, err); text != "'message' is required" {
		t.Errorf("text = %q", text)
	}
	if api.listedGroup != 0 {
		t.Error("groups must not be listed for invalid input")
	}
}

func TestDeployCommitTool(t *testing.T) {
	api := oneStreamGroup()
	api.deploy = cribl.Ok(&cribl.WorkerGroup{ID: "default", ConfigVersion: "c0ffee01"})

	result, err := NewDeployCommitTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"version": "c0ffee01"}))
	if text := mustSucceed(t, result, err); !strings.Contains(text, `"configVersion": "c0ffee01"`) {
		t.Errorf("text = %q", text)
	}
	if api.version != "c0ffee01" || api.group != "default" {
		t.Errorf("version=%q group=%q", api.version, api.group)
	}
}

func TestDeployCommitTool_APIError(t *testing.T) {
	api := oneStreamGroup()
	api.deploy = cribl.Fail[*cribl.WorkerGroup]("API Error (409) during deploy commit x to group default: conflict")

	result, err := NewDeployCommitTool(api).Handle(context.Background(), newRequest(map[string]interface{}{"version": "x"}))
	if text := mustFail(t, result, err); !strings.HasPrefix(text, "Error deploying x to group default: API Error (409)") {
		t.Errorf("text = %q", text)
	}
}

// --- Definitions ---

func TestDefinitions(t *testing.T) {
	api := &fakeAPI{}
	defs := map[string]mcp.Tool{
		"cribl_listWorkerGroups":   NewListWorkerGroupsTool(api).Definition(),
		"cribl_getPipelines":       NewGetPipelinesTool(api).Definition(),
		"cribl_getPipelineConfig":  NewGetPipelineConfigTool(api).Definition(),
		"cribl_setPipelineConfig":  NewSetPipelineConfigTool(api).Definition(),
		"cribl_getSources":         NewGetSourcesTool(api).Definition(),
		"cribl_restartWorkerGroup": NewRestartWorkerGroupTool(api).Definition(),
		"cribl_getSystemMetrics":   NewGetSystemMetricsTool(api).Definition(),
		"cribl_getVersionStatus":   NewGetVersionStatusTool(api).Definition(),
		"cribl_commitChanges":      NewCommitChangesTool(api).Definition(),
		"cribl_deployCommit":       NewDeployCommitTool(api).Definition(),
	}
	for name, def := range defs {
		if def.Name != name {
			t.Errorf("tool name = %q, want %q", def.Name, name)
		}
		if def.Description == "" {
			t.Errorf("%s has no description", name)
		}
	}
}
