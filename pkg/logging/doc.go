// Package logging provides structured logging for promptd with unified
// log handling and level filtering.
//
// The package wraps Go's standard slog package behind a small API that
// tags every entry with a subsystem identifier:
//
//	import "promptd/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("OAuth", "Metadata cache expired for %s", issuer)
//	logging.Error("TokenStore", err, "Failed to persist token")
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**: Application initialization and startup
//   - **Config**: Configuration loading, validation, and watching
//   - **OAuth**: Discovery, authorization flows, and token exchange
//   - **Authz**: Authorization decision evaluation
//   - **Tools**: MCP client connections and tool calls
//   - **HTTP**: API server operations
//
// Level filtering happens at the handler, so filtered-out messages cost no
// allocation. All functions are safe for concurrent use.
package logging
