package app

// Config holds the application bootstrap configuration.
type Config struct {
	// Debug enables debug-level logging.
	Debug bool

	// Silent suppresses all log output.
	Silent bool

	// ConfigPath overrides the default configuration file location.
	ConfigPath string
}

// NewConfig creates a new application configuration.
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
