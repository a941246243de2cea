package app

import (
	"sync"

	"promptd/internal/authz"
	"promptd/internal/config"
	"promptd/internal/oauth"
	"promptd/internal/server"
	"promptd/internal/tools"
	"promptd/pkg/logging"
)

// Services holds all wired components of the daemon. The current
// configuration snapshot is guarded so that the file watcher can swap it
// while the HTTP server reads it.
type Services struct {
	mu      sync.RWMutex
	current config.Config

	Sessions *oauth.SessionStore
	Tokens   *oauth.TokenStore
	Resolver *oauth.Resolver
	Flow     *oauth.Flow
	Engine   *authz.Engine
	Gateway  *tools.Gateway
	Server   *server.Server
	Watcher  *config.Watcher
}

// InitializeServices wires the daemon together from a loaded configuration.
func InitializeServices(cfg *Config, loaded config.Config) (*Services, error) {
	s := &Services{
		current:  loaded,
		Sessions: oauth.NewSessionStore(),
		Tokens:   oauth.NewTokenStore(),
		Resolver: oauth.NewResolver(),
	}

	publicURL := loaded.Serve.EffectivePublicURL()
	callbackPath := loaded.Serve.CallbackPath
	if callbackPath == "" {
		callbackPath = config.DefaultOAuthCallbackPath
	}

	s.Flow = oauth.NewFlow(s.Sessions, s.Tokens, s.Resolver, publicURL, callbackPath)

	s.Engine = authz.NewEngine(s.Tokens)
	authz.RegisterDefaultValidators(s.Engine)

	s.Gateway = tools.NewGateway(s.Engine, s.Tokens)

	s.Server = server.NewServer(s.CurrentConfig, s.Flow, s.Tokens, s.Engine, callbackPath)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}
	s.Watcher = config.NewWatcher(configPath, s.applyConfig)

	return s, nil
}

// CurrentConfig returns the active configuration snapshot.
func (s *Services) CurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.current
	return &snapshot
}

// applyConfig swaps in a reloaded configuration.
func (s *Services) applyConfig(updated config.Config) {
	s.mu.Lock()
	s.current = updated
	s.mu.Unlock()

	logging.Info("Bootstrap", "Applied updated configuration (%d servers, %d prompts)",
		len(updated.MCPServers), len(updated.Prompts))
}

// Close releases background resources.
func (s *Services) Close() {
	if s.Watcher != nil {
		_ = s.Watcher.Stop()
	}
	s.Sessions.Stop()
}
