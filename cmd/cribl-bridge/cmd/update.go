package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/cribl-bridge/internal/server"
	"github.com/HendryAvila/cribl-bridge/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update to the latest release",
	Long: `Download the latest cribl-bridge release for this platform from GitHub
and replace the running binary. Restart your MCP client afterwards.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "Checking for updates...")

	installed, err := updater.SelfUpdate(cmd.Context(), server.Version)
	if errors.Is(err, updater.ErrUpToDate) {
		fmt.Fprintf(out, "Already at the latest version (%s)\n", server.Version)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update failed: %w\n\nDownload manually from https://github.com/HendryAvila/cribl-bridge/releases", err)
	}

	fmt.Fprintf(out, "Updated to v%s. Restart cribl-bridge to use the new version.\n", installed)
	return nil
}
