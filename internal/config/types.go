package config

// Config is the top-level configuration structure for promptd.
type Config struct {
	Serve      ServeConfig `yaml:"serve"`
	MCPServers []MCPServer `yaml:"mcpServers"`
	Prompts    []Prompt    `yaml:"prompts"`
	LogLevel   string      `yaml:"logLevel,omitempty"` // debug|info|warn|error (default: info)
}

// ServeConfig defines the HTTP server settings.
type ServeConfig struct {
	Port         int    `yaml:"port,omitempty"`         // Port for the HTTP API (default: 8090)
	Host         string `yaml:"host,omitempty"`         // Host to bind to (default: localhost)
	PublicURL    string `yaml:"publicURL,omitempty"`    // Externally reachable base URL, used for OAuth redirect URIs
	CallbackPath string `yaml:"callbackPath,omitempty"` // Path for OAuth callbacks (default: /oauth/callback)
}

// ClientType defines how an OAuth client authenticates to the token endpoint.
type ClientType string

const (
	// ClientTypeConfidential clients hold a client secret and send it with
	// the token request.
	ClientTypeConfidential ClientType = "confidential"
	// ClientTypePublic clients have no secret and rely on PKCE alone.
	ClientTypePublic ClientType = "public"
)

// OAuthProvider is an explicitly configured authorization server for an MCP
// server. When present, endpoint discovery and dynamic client registration
// are skipped entirely.
type OAuthProvider struct {
	AuthorizationURL string     `yaml:"authorizationUrl"`
	TokenURL         string     `yaml:"tokenUrl"`
	ClientID         string     `yaml:"clientId"`
	ClientSecret     string     `yaml:"clientSecret,omitempty"`
	ClientType       ClientType `yaml:"clientType,omitempty"` // default: confidential when a secret is set, public otherwise
	Scope            string     `yaml:"scope,omitempty"`
}

// MCPServer describes a remote MCP tool server and how promptd authorizes
// against it.
type MCPServer struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// AuthorizationToken is a static bearer token. When set, no OAuth flow
	// is needed for this server.
	AuthorizationToken string `yaml:"authorizationToken,omitempty"`

	// CustomAuth names a registered custom validator (e.g. "git-credentials")
	// consulted as the last authorization tier.
	CustomAuth string `yaml:"customAuth,omitempty"`

	// Scope requested during OAuth authorization when no explicit provider
	// scope is configured.
	Scope string `yaml:"scope,omitempty"`

	// OAuth configures an explicit provider, bypassing discovery.
	OAuth *OAuthProvider `yaml:"oauth,omitempty"`
}

// Prompt is a stored prompt definition. Execution is gated on the
// authorization state of every server it references.
type Prompt struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Servers     []string  `yaml:"servers"`
	Messages    []Message `yaml:"messages"`
}

// Message is a single prompt message.
type Message struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// ServerByName returns the MCP server definition with the given name, or nil.
func (c *Config) ServerByName(name string) *MCPServer {
	for i := range c.MCPServers {
		if c.MCPServers[i].Name == name {
			return &c.MCPServers[i]
		}
	}
	return nil
}

// PromptByName returns the prompt definition with the given name, or nil.
func (c *Config) PromptByName(name string) *Prompt {
	for i := range c.Prompts {
		if c.Prompts[i].Name == name {
			return &c.Prompts[i]
		}
	}
	return nil
}

// EffectiveClientType resolves the client type, defaulting to confidential
// when a secret is configured and public otherwise.
func (p *OAuthProvider) EffectiveClientType() ClientType {
	if p.ClientType != "" {
		return p.ClientType
	}
	if p.ClientSecret != "" {
		return ClientTypeConfidential
	}
	return ClientTypePublic
}
