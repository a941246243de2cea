package tools

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"promptd/internal/authz"
	"promptd/internal/config"
	"promptd/internal/oauth"
	"promptd/pkg/logging"
)

// protocolVersion is the MCP protocol version promptd speaks.
const protocolVersion = "2024-11-05"

// Gateway builds authorized MCP connections for prompt execution.
type Gateway struct {
	engine *authz.Engine
	tokens *oauth.TokenStore

	lookupEnv func(string) (string, bool)
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithEnvLookup replaces the environment lookup, primarily for tests.
func WithEnvLookup(lookup func(string) (string, bool)) GatewayOption {
	return func(g *Gateway) {
		g.lookupEnv = lookup
	}
}

// NewGateway creates a gateway over the given decision engine and token
// store.
func NewGateway(engine *authz.Engine, tokens *oauth.TokenStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		engine:    engine,
		tokens:    tokens,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connection is an initialized MCP client for one server.
type Connection struct {
	ServerName string

	mu        sync.Mutex
	client    client.MCPClient
	connected bool
}

// Connect builds and initializes an MCP connection for the server.
// Unauthorized servers are refused with NotAuthorizedError before any
// network traffic.
func (g *Gateway) Connect(ctx context.Context, srv config.MCPServer) (*Connection, error) {
	if !g.engine.IsAuthorized(ctx, srv) {
		return nil, &NotAuthorizedError{ServerName: srv.Name}
	}

	tokenStore := g.tokenStoreFor(srv)

	opts := []transport.StreamableHTTPCOption{
		transport.WithHTTPOAuth(transport.OAuthConfig{
			TokenStore: tokenStore,
			Scopes:     scopesFor(srv),
		}),
	}

	mcpClient, err := client.NewStreamableHttpClient(srv.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %s: %w", srv.Name, err)
	}

	initResult, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "promptd",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP protocol for %s: %w", srv.Name, err)
	}

	logging.Debug("Tools", "Connected to server=%s (%s %s)",
		srv.Name, initResult.ServerInfo.Name, initResult.ServerInfo.Version)

	return &Connection{
		ServerName: srv.Name,
		client:     mcpClient,
		connected:  true,
	}, nil
}

// tokenStoreFor resolves the bearer source for a server, mirroring the
// decision engine's tier order: config token, environment token, then the
// OAuth token store.
func (g *Gateway) tokenStoreFor(srv config.MCPServer) transport.TokenStore {
	if srv.AuthorizationToken != "" {
		return newStaticTokenStore(srv.Name, oauth.NewRedactedToken(srv.AuthorizationToken))
	}
	if value, ok := g.lookupEnv(authz.EnvVarName(srv.Name)); ok && value != "" {
		return newStaticTokenStore(srv.Name, oauth.NewRedactedToken(value))
	}
	return newOAuthTokenStore(srv.Name, g.tokens)
}

func scopesFor(srv config.MCPServer) []string {
	scope := srv.Scope
	if srv.OAuth != nil && srv.OAuth.Scope != "" {
		scope = srv.OAuth.Scope
	}
	if scope == "" {
		return nil
	}
	return []string{scope}
}

// ListTools returns the tools the connected server offers.
func (c *Connection) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, fmt.Errorf("connection to %s is closed", c.ServerName)
	}

	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools on %s: %w", c.ServerName, err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool on the connected server.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, fmt.Errorf("connection to %s is closed", c.ServerName)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return c.client.CallTool(ctx, req)
}

// Close shuts the connection down.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	return c.client.Close()
}

// Execution is a prepared prompt run: one authorized connection per
// referenced server, plus each server's tool inventory.
type Execution struct {
	ID          string
	PromptName  string
	Connections map[string]*Connection
	Tools       map[string][]mcp.Tool
}

// Prepare gates a prompt on its servers' authorization and opens the
// connections it needs. Any unauthorized server aborts the whole
// preparation; already-opened connections are closed again.
func (g *Gateway) Prepare(ctx context.Context, prompt config.Prompt, cfg *config.Config) (*Execution, error) {
	exec := &Execution{
		ID:          uuid.NewString(),
		PromptName:  prompt.Name,
		Connections: make(map[string]*Connection, len(prompt.Servers)),
		Tools:       make(map[string][]mcp.Tool, len(prompt.Servers)),
	}

	// Check every server before opening anything: a prompt with one
	// unauthorized server never generates traffic to the others either.
	for _, name := range prompt.Servers {
		srv := cfg.ServerByName(name)
		if srv == nil {
			return nil, fmt.Errorf("prompt %s references unknown server %s", prompt.Name, name)
		}
		if !g.engine.IsAuthorized(ctx, *srv) {
			return nil, &NotAuthorizedError{ServerName: name}
		}
	}

	for _, name := range prompt.Servers {
		srv := cfg.ServerByName(name)

		conn, err := g.Connect(ctx, *srv)
		if err != nil {
			exec.Close()
			return nil, err
		}
		exec.Connections[name] = conn

		serverTools, err := conn.ListTools(ctx)
		if err != nil {
			exec.Close()
			return nil, err
		}
		exec.Tools[name] = serverTools
	}

	logging.Info("Tools", "Prepared execution %s for prompt=%s (%d servers)",
		exec.ID, prompt.Name, len(exec.Connections))
	return exec, nil
}

// Close closes all connections of the execution.
func (e *Execution) Close() {
	for _, conn := range e.Connections {
		_ = conn.Close()
	}
}
