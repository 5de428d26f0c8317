// cribl-bridge: MCP server for the Cribl leader REST API.
//
// Usage:
//
//	cribl-bridge serve     # Start the MCP server (stdio transport)
//	cribl-bridge config    # Print the effective configuration
//	cribl-bridge update    # Update to the latest release
package main

import "github.com/HendryAvila/cribl-bridge/cmd/cribl-bridge/cmd"

func main() {
	cmd.Execute()
}
