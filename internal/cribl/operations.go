package cribl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// MetricsQuery narrows GetSystemMetrics.
type MetricsQuery struct {
	// FilterExpr is a JavaScript filter expression evaluated by the leader,
	// e.g. `name.startsWith("total.")`.
	FilterExpr string
	// NumBuckets limits the number of time buckets returned (0 = server default).
	NumBuckets int
}

func groupPath(group string, parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return "/api/v1/m/" + url.PathEscape(group) + "/" + strings.Join(escaped, "/")
}

func required[T any](value, param, op string) (Envelope[T], bool) {
	if strings.TrimSpace(value) == "" {
		return Fail[T](fmt.Sprintf("%s is required for %s.", param, op)), false
	}
	return Envelope[T]{}, true
}

// listItems decodes an {items: [...]} body.
func listItems[T any](env Envelope[*RawResponse], label string) Envelope[[]T] {
	list := decodeJSON[listResponse[T]](env, label)
	if !list.Success {
		return failAs[[]T](list)
	}
	if list.Data.Items == nil {
		return Ok([]T{})
	}
	return Ok(list.Data.Items)
}

// singleItem decodes either {items: [x, ...]} (first element) or a bare object.
func singleItem[T any](env Envelope[*RawResponse], label string) Envelope[*T] {
	if !env.Success {
		return failAs[*T](env)
	}
	var probe struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(env.Data.Body, &probe); err == nil && len(probe.Items) > 0 {
		list := listItems[T](env, label)
		if !list.Success {
			return failAs[*T](list)
		}
		if len(list.Data) == 0 {
			return Fail[*T](fmt.Sprintf("API Error (%d) during %s: response contained no items.", env.Data.Status, label))
		}
		return Ok(&list.Data[0])
	}
	obj := decodeJSON[T](env, label)
	if !obj.Success {
		return failAs[*T](obj)
	}
	return Ok(&obj.Data)
}

// ListWorkerGroups lists all worker groups and fleets.
func (c *Client) ListWorkerGroups(ctx context.Context) Envelope[[]WorkerGroup] {
	r := Request{Method: http.MethodGet, Path: "/api/v1/master/groups", Context: "list worker groups"}
	return listItems[WorkerGroup](c.Call(ctx, r), r.Context)
}

// GetPipelines lists the pipelines of a group.
func (c *Client) GetPipelines(ctx context.Context, group string) Envelope[[]Pipeline] {
	if env, ok := required[[]Pipeline](group, "Worker group name", "getPipelines"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodGet,
		Path:    groupPath(group, "pipelines"),
		Context: fmt.Sprintf("fetch pipelines for group %s", group),
	}
	return listItems[Pipeline](c.Call(ctx, r), r.Context)
}

// GetPipeline reads one pipeline, configuration included.
func (c *Client) GetPipeline(ctx context.Context, group, id string) Envelope[*Pipeline] {
	if env, ok := required[*Pipeline](group, "Worker group name", "getPipelineConfig"); !ok {
		return env
	}
	if env, ok := required[*Pipeline](id, "Pipeline ID", "getPipelineConfig"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodGet,
		Path:    groupPath(group, "pipelines", id),
		Context: fmt.Sprintf("fetch pipeline %s in group %s", id, group),
	}
	return singleItem[Pipeline](c.Call(ctx, r), r.Context)
}

// SetPipelineConfig replaces a pipeline's configuration. conf is the
// pipeline object expected by the API ({id, conf: {...}}); its id is
// filled in from the id argument when missing.
func (c *Client) SetPipelineConfig(ctx context.Context, group, id string, conf map[string]any) Envelope[*Pipeline] {
	if env, ok := required[*Pipeline](group, "Worker group name", "setPipelineConfig"); !ok {
		return env
	}
	if env, ok := required[*Pipeline](id, "Pipeline ID", "setPipelineConfig"); !ok {
		return env
	}
	if conf == nil {
		return Fail[*Pipeline]("Pipeline configuration is required for setPipelineConfig.")
	}

	payload := make(map[string]any, len(conf)+1)
	for k, v := range conf {
		payload[k] = v
	}
	if _, ok := payload["id"]; !ok {
		payload["id"] = id
	}

	r := Request{
		Method:  http.MethodPatch,
		Path:    groupPath(group, "pipelines", id),
		Payload: payload,
		Context: fmt.Sprintf("setPipelineConfig (ID: %s, Group: %s)", id, group),
	}
	return singleItem[Pipeline](c.Call(ctx, r), r.Context)
}

// GetSources lists the sources (inputs) of a group.
func (c *Client) GetSources(ctx context.Context, group string) Envelope[[]Source] {
	if env, ok := required[[]Source](group, "Worker group name", "getSources"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodGet,
		Path:    groupPath(group, "system", "inputs"),
		Context: fmt.Sprintf("fetch sources for group %s", group),
	}
	return listItems[Source](c.Call(ctx, r), r.Context)
}

// RestartWorkerGroup asks every worker of a group to restart.
func (c *Client) RestartWorkerGroup(ctx context.Context, group string) Envelope[string] {
	if env, ok := required[string](group, "Worker group name", "restartWorkerGroup"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodPost,
		Path:    groupPath(group, "system", "settings", "restart"),
		Context: fmt.Sprintf("restartWorkerGroup (Group: %s)", group),
	}
	env := c.Call(ctx, r)
	if !env.Success {
		return failAs[string](env)
	}
	return Ok(fmt.Sprintf("Successfully initiated restart for group %s. Response status: %d", group, env.Data.Status))
}

// GetSystemMetrics returns the group's system metrics as delivered by the
// leader. The shape depends on the query, so it is not modeled.
func (c *Client) GetSystemMetrics(ctx context.Context, group string, q MetricsQuery) Envelope[json.RawMessage] {
	if env, ok := required[json.RawMessage](group, "Worker group name", "getSystemMetrics"); !ok {
		return env
	}
	query := url.Values{}
	if q.FilterExpr != "" {
		query.Set("filterExpr", q.FilterExpr)
	}
	if q.NumBuckets > 0 {
		query.Set("numBuckets", fmt.Sprint(q.NumBuckets))
	}
	r := Request{
		Method:  http.MethodGet,
		Path:    groupPath(group, "system", "metrics"),
		Query:   query,
		Context: fmt.Sprintf("fetch system metrics for group %s", group),
	}
	return decodeJSON[json.RawMessage](c.Call(ctx, r), r.Context)
}

// GetVersionStatus returns the uncommitted-changes status of a group.
func (c *Client) GetVersionStatus(ctx context.Context, group string) Envelope[*VersionStatus] {
	if env, ok := required[*VersionStatus](group, "Worker group name", "getVersionStatus"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodGet,
		Path:    groupPath(group, "version", "status"),
		Context: fmt.Sprintf("fetch version status for group %s", group),
	}
	return singleItem[VersionStatus](c.Call(ctx, r), r.Context)
}

type commitRequest struct {
	Message string   `json:"message"`
	Group   string   `json:"group"`
	Files   []string `json:"files,omitempty"`
}

// CommitChanges commits pending configuration changes of a group.
// With no files, everything pending is committed.
func (c *Client) CommitChanges(ctx context.Context, group, message string, files []string) Envelope[*CommitResult] {
	if env, ok := required[*CommitResult](group, "Worker group name", "commitChanges"); !ok {
		return env
	}
	if env, ok := required[*CommitResult](message, "Commit message", "commitChanges"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodPost,
		Path:    "/api/v1/version/commit",
		Payload: commitRequest{Message: message, Group: group, Files: files},
		Context: fmt.Sprintf("commit changes for group %s", group),
	}
	return singleItem[CommitResult](c.Call(ctx, r), r.Context)
}

type deployRequest struct {
	Version string `json:"version"`
}

// DeployCommit deploys a committed configuration version to a group.
func (c *Client) DeployCommit(ctx context.Context, group, version string) Envelope[*WorkerGroup] {
	if env, ok := required[*WorkerGroup](group, "Worker group name", "deployCommit"); !ok {
		return env
	}
	if env, ok := required[*WorkerGroup](version, "Commit version", "deployCommit"); !ok {
		return env
	}
	r := Request{
		Method:  http.MethodPatch,
		Path:    "/api/v1/master/groups/" + url.PathEscape(group) + "/deploy",
		Payload: deployRequest{Version: version},
		Context: fmt.Sprintf("deploy commit %s to group %s", version, group),
	}
	return singleItem[WorkerGroup](c.Call(ctx, r), r.Context)
}
