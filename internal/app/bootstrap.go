package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"promptd/internal/config"
	"promptd/pkg/logging"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// Application bootstraps and runs the promptd daemon.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance. It
// configures logging, loads the configuration, and wires all services.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(appLogLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	if loaded.LogLevel != "" && !cfg.Debug {
		logging.InitForCLI(logging.ParseLevel(loaded.LogLevel), logOutput)
	}
	logging.Info("Bootstrap", "Loaded configuration from %s (%d servers, %d prompts)",
		configPath, len(loaded.MCPServers), len(loaded.Prompts))

	services, err := InitializeServices(cfg, loaded)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired components, primarily for tests.
func (a *Application) Services() *Services {
	return a.services
}

// Run starts the config watcher and HTTP server and blocks until the
// context is canceled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.services.Close()

	if err := a.services.Watcher.Start(); err != nil {
		logging.Warn("Bootstrap", "Config watcher not started: %v", err)
	}

	serve := a.services.CurrentConfig().Serve
	addr := net.JoinHostPort(serve.Host, strconv.Itoa(serve.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.services.Server.Start(addr)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Bootstrap", "Shutting down")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.services.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return <-serverErr
}
