package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"promptd/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveSilent suppresses all log output, useful for scripting.
var serveSilent bool

// serveConfigPath overrides the default configuration file location.
var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the promptd daemon",
	Long: `Starts the promptd daemon. The daemon serves the HTTP API for
listing prompts, inspecting per-server authorization status, starting
OAuth flows, and receiving provider callbacks.

Configuration is loaded from ~/.config/promptd/config.yaml by default
and reloaded automatically when the file changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent, serveConfigPath)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
}
