package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
)

// rootCmd represents the base command for the promptd application.
var rootCmd = &cobra.Command{
	Use:   "promptd",
	Short: "Run stored prompts against authorized MCP tool servers",
	Long: `promptd stores prompt definitions and runs them against MCP tool
servers such as Jira or GitHub. Before a prompt touches a server, promptd
checks whether a usable credential exists (config token, environment
token, completed OAuth flow, or a custom validator) and drives a browser
OAuth 2.1 PKCE flow when none does.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command, injected from main at
// build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "promptd version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}
