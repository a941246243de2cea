package cmd

import (
	"github.com/spf13/cobra"
)

// authEndpoint overrides the daemon endpoint derived from the config file.
var authEndpoint string

// authCmd groups authorization-related subcommands.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect MCP server authorization",
	Long: `Inspect the authorization state of configured MCP servers.

These commands talk to a running promptd daemon.`,
}

func init() {
	authCmd.PersistentFlags().StringVar(&authEndpoint, "endpoint", "", "promptd daemon endpoint (default: derived from config)")

	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
