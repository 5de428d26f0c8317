// Package cmd provides the CLI commands for cribl-bridge.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/cribl-bridge/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cribl-bridge",
	Short: "cribl-bridge - MCP server for Cribl",
	Long: `cribl-bridge exposes a Cribl Stream / Edge / Search leader to MCP clients
over stdio: worker groups, pipelines, sources, metrics and the
commit / deploy workflow.

Quick start:
  export CRIBL_BASE_URL=https://main-acme.cribl.cloud
  export CRIBL_AUTH_TYPE=cloud
  export CRIBL_CLIENT_ID=... CRIBL_CLIENT_SECRET=...
  cribl-bridge serve

Configuration:
  Config is loaded from cribl-bridge.yaml in the current directory or
  $HOME/.cribl-bridge/. Environment variables with the CRIBL_ prefix
  override file values, e.g. CRIBL_LOG_LEVEL=debug.

MCP client entry:
  {
    "mcpServers": {
      "cribl": { "command": "cribl-bridge", "args": ["serve"] }
    }
  }`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cribl-bridge.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
