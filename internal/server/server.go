// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the credential manager and the
// Cribl client from configuration and injects them into the tools, prompts
// and resources. No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/cribl-bridge/internal/auth"
	"github.com/HendryAvila/cribl-bridge/internal/config"
	"github.com/HendryAvila/cribl-bridge/internal/cribl"
	"github.com/HendryAvila/cribl-bridge/internal/prompts"
	"github.com/HendryAvila/cribl-bridge/internal/resources"
	"github.com/HendryAvila/cribl-bridge/internal/telemetry"
	"github.com/HendryAvila/cribl-bridge/internal/tools"
)

// Name is the MCP server name reported to clients.
const Name = "cribl-bridge"

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the shared dependencies of New. Zero values are replaced by
// working defaults.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
	HTTPClient *http.Client
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered. This is the single place where all dependencies
// are resolved.
func New(cfg *config.Config, deps Deps) (*server.MCPServer, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}

	// --- Create shared dependencies ---

	exchanger, err := newExchanger(cfg, deps.HTTPClient)
	if err != nil {
		return nil, err
	}
	creds := auth.NewManager(exchanger,
		auth.WithExchangeTimeout(timeout),
		auth.WithLogger(deps.Logger.With("component", "auth")),
		auth.WithMetrics(deps.Metrics),
	)
	client := cribl.NewClient(cfg.BaseURL, creds,
		cribl.WithHTTPClient(deps.HTTPClient),
		cribl.WithTimeout(timeout),
		cribl.WithUserAgent(Name+"/"+Version),
		cribl.WithLogger(deps.Logger.With("component", "cribl")),
		cribl.WithMetrics(deps.Metrics),
	)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register Cribl tools ---

	reg := toolRegistrar{s: s, logger: deps.Logger.With("component", "tools"), metrics: deps.Metrics}

	listGroups := tools.NewListWorkerGroupsTool(client)
	reg.add(listGroups.Definition(), listGroups.Handle)

	getPipelines := tools.NewGetPipelinesTool(client)
	reg.add(getPipelines.Definition(), getPipelines.Handle)

	getPipelineConfig := tools.NewGetPipelineConfigTool(client)
	reg.add(getPipelineConfig.Definition(), getPipelineConfig.Handle)

	setPipelineConfig := tools.NewSetPipelineConfigTool(client)
	reg.add(setPipelineConfig.Definition(), setPipelineConfig.Handle)

	getSources := tools.NewGetSourcesTool(client)
	reg.add(getSources.Definition(), getSources.Handle)

	restart := tools.NewRestartWorkerGroupTool(client)
	reg.add(restart.Definition(), restart.Handle)

	metrics := tools.NewGetSystemMetricsTool(client)
	reg.add(metrics.Definition(), metrics.Handle)

	versionStatus := tools.NewGetVersionStatusTool(client)
	reg.add(versionStatus.Definition(), versionStatus.Handle)

	commit := tools.NewCommitChangesTool(client)
	reg.add(commit.Definition(), commit.Handle)

	deploy := tools.NewDeployCommitTool(client)
	reg.add(deploy.Definition(), deploy.Handle)

	// --- Register prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	reviewPrompt := prompts.NewPipelineReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(client)
	s.AddResource(resourceHandler.WorkerGroupsResource(), resourceHandler.HandleWorkerGroups)

	return s, nil
}

// newExchanger builds the credential exchange for the configured auth mode.
func newExchanger(cfg *config.Config, hc *http.Client) (auth.Exchanger, error) {
	switch cfg.AuthType {
	case config.AuthCloud:
		return &auth.ClientCredentials{
			AuthURL:      cfg.CloudAuthURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Audience:     cfg.Audience,
			HTTPClient:   hc,
		}, nil
	case config.AuthLocal:
		return &auth.Login{
			BaseURL:    cfg.BaseURL,
			Username:   cfg.Username,
			Password:   cfg.Password,
			HTTPClient: hc,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported auth_type %q", cfg.AuthType)
	}
}

// toolRegistrar adds tools with call logging and metrics.
type toolRegistrar struct {
	s       *server.MCPServer
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

func (r toolRegistrar) add(def mcp.Tool, handle server.ToolHandlerFunc) {
	name := def.Name
	r.s.AddTool(def, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handle(ctx, req)
		failed := err != nil || (result != nil && result.IsError)
		r.metrics.ObserveTool(name, failed)

		switch {
		case err != nil:
			r.logger.Error("tool call failed", "tool", name, "error", err, "elapsed", time.Since(start))
		case failed:
			r.logger.Warn("tool returned error", "tool", name, "elapsed", time.Since(start))
		default:
			r.logger.Info("tool call", "tool", name, "elapsed", time.Since(start))
		}
		return result, err
	})
}

func serverInstructions() string {
	return `You have access to the Cribl bridge, an MCP server for managing a Cribl
Stream / Edge / Search deployment through the Cribl leader's REST API.

## WHAT YOU CAN DO

Read:
- cribl_listWorkerGroups: list worker groups (Stream), fleets (Edge) or Search groups
- cribl_getPipelines / cribl_getPipelineConfig: list pipelines, read one pipeline's full config
- cribl_getSources: list data sources (inputs) and the pipelines they feed
- cribl_getSystemMetrics: throughput and resource metrics of a group
- cribl_getVersionStatus: configuration changes not yet committed

Change:
- cribl_setPipelineConfig: replace a pipeline's config (staged on the leader)
- cribl_commitChanges: commit staged changes, returns a commit ID
- cribl_deployCommit: deploy a commit to the group's workers
- cribl_restartWorkerGroup: restart every worker of a group

## GROUP SELECTION

Every group-scoped tool takes an optional groupName. When omitted, the bridge
uses the only Stream group; if there are none or several, the error lists the
available groups. Pick one and call again with groupName.

## CHANGE WORKFLOW

Changes reach the workers only after commit and deploy:
1. cribl_getPipelineConfig to read the current config
2. cribl_setPipelineConfig with the full modified config
3. cribl_commitChanges with a meaningful message
4. cribl_deployCommit with the returned commit ID

Always show the user the proposed change and get confirmation before steps
2 to 4, and before cribl_restartWorkerGroup. These affect live data flow.

## ERRORS

Errors are returned as tool errors with the API's message, for example
"API Error (404) during fetch pipeline x in group default: Item not found".
Authentication problems mention "credential refresh"; report them to the
user instead of retrying in a loop.`
}
