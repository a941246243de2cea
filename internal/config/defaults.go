package config

import "fmt"

const (
	// DefaultOAuthCallbackPath is the default path for OAuth callbacks
	DefaultOAuthCallbackPath = "/oauth/callback"

	// DefaultPort is the default HTTP API port
	DefaultPort = 8090

	// DefaultHost is the default bind address
	DefaultHost = "localhost"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Serve: ServeConfig{
			Port:         DefaultPort,
			Host:         DefaultHost,
			CallbackPath: DefaultOAuthCallbackPath,
		},
		LogLevel: "info",
	}
}

// EffectivePublicURL returns the configured public URL, or one derived from
// host and port when unset.
func (s ServeConfig) EffectivePublicURL() string {
	if s.PublicURL != "" {
		return s.PublicURL
	}
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}
