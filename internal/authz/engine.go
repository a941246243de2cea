package authz

import (
	"context"
	"fmt"
	"os"
	"sync"

	"promptd/internal/config"
	"promptd/pkg/logging"
)

// Method identifies the authorization tier that covered a server.
type Method string

const (
	MethodConfig      Method = "config"
	MethodEnvironment Method = "environment"
	MethodOAuth       Method = "oauth"
	MethodCustom      Method = "custom"
	MethodNone        Method = "none"
)

// TokenChecker is the narrow view of the OAuth token store the engine needs.
type TokenChecker interface {
	IsValid(serverName string) bool
}

// Validator checks a custom credential source, such as a credentials file on
// disk. Validators are consulted only for servers whose configuration names
// them, and a validator error counts as "not authorized", never as a
// decision failure.
type Validator interface {
	Name() string
	Validate(ctx context.Context, srv config.MCPServer) (bool, error)
}

// Details reports every authorization tier for a server at once. The
// booleans are independent of each other; Method is the tier that wins
// under the fixed ordering. Collecting details mutates nothing.
type Details struct {
	HasConfigToken bool   `json:"hasConfigToken"`
	HasEnvToken    bool   `json:"hasEnvToken"`
	HasOAuthToken  bool   `json:"hasOAuthToken"`
	HasCustomAuth  bool   `json:"hasCustomAuth"`
	Method         Method `json:"method"`
}

// Engine evaluates the authorization tiers for MCP servers.
type Engine struct {
	tokens    TokenChecker
	lookupEnv func(string) (string, bool)

	mu         sync.RWMutex
	validators map[string]Validator
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEnvLookup replaces the environment lookup, primarily for tests.
func WithEnvLookup(lookup func(string) (string, bool)) EngineOption {
	return func(e *Engine) {
		e.lookupEnv = lookup
	}
}

// NewEngine creates a decision engine backed by the given token store view.
func NewEngine(tokens TokenChecker, opts ...EngineOption) *Engine {
	e := &Engine{
		tokens:     tokens,
		lookupEnv:  os.LookupEnv,
		validators: make(map[string]Validator),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterValidator registers a custom validator under its name. A second
// registration under the same name replaces the first.
func (e *Engine) RegisterValidator(v Validator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validators[v.Name()] = v
}

// EnvVarName returns the environment variable consulted for a server. The
// server name is used verbatim, without case folding.
func EnvVarName(serverName string) string {
	return fmt.Sprintf("MCP_%s_authorization_token", serverName)
}

// IsAuthorized reports whether any tier authorizes the server.
// Repeated calls with unchanged surroundings give the same answer; the
// check never mutates state.
func (e *Engine) IsAuthorized(ctx context.Context, srv config.MCPServer) bool {
	return e.Method(ctx, srv) != MethodNone
}

// Method returns the first tier, in fixed order, that authorizes the server.
func (e *Engine) Method(ctx context.Context, srv config.MCPServer) Method {
	if srv.AuthorizationToken != "" {
		return MethodConfig
	}
	if e.hasEnvToken(srv.Name) {
		return MethodEnvironment
	}
	if e.tokens != nil && e.tokens.IsValid(srv.Name) {
		return MethodOAuth
	}
	if e.customAuthorized(ctx, srv) {
		return MethodCustom
	}
	return MethodNone
}

// Details evaluates all four tiers independently. Method still reflects the
// fixed tier order, so a server with both a config token and a valid OAuth
// token reports both booleans and Method "config".
func (e *Engine) Details(ctx context.Context, srv config.MCPServer) Details {
	d := Details{
		HasConfigToken: srv.AuthorizationToken != "",
		HasEnvToken:    e.hasEnvToken(srv.Name),
		HasOAuthToken:  e.tokens != nil && e.tokens.IsValid(srv.Name),
		HasCustomAuth:  e.customAuthorized(ctx, srv),
	}

	switch {
	case d.HasConfigToken:
		d.Method = MethodConfig
	case d.HasEnvToken:
		d.Method = MethodEnvironment
	case d.HasOAuthToken:
		d.Method = MethodOAuth
	case d.HasCustomAuth:
		d.Method = MethodCustom
	default:
		d.Method = MethodNone
	}

	return d
}

func (e *Engine) hasEnvToken(serverName string) bool {
	value, ok := e.lookupEnv(EnvVarName(serverName))
	return ok && value != ""
}

// customAuthorized consults the validator the server names, if any.
// Missing validators and validator errors both mean "not via this tier".
func (e *Engine) customAuthorized(ctx context.Context, srv config.MCPServer) bool {
	if srv.CustomAuth == "" {
		return false
	}

	e.mu.RLock()
	validator, ok := e.validators[srv.CustomAuth]
	e.mu.RUnlock()

	if !ok {
		logging.Debug("Authz", "No validator registered for tag=%s (server=%s)", srv.CustomAuth, srv.Name)
		return false
	}

	authorized, err := validator.Validate(ctx, srv)
	if err != nil {
		logging.Warn("Authz", "Validator %s failed for server=%s: %v", srv.CustomAuth, srv.Name, err)
		return false
	}
	return authorized
}
