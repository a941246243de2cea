package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"promptd/internal/config"
)

// fakeTokens implements TokenChecker over a fixed set of server names.
type fakeTokens map[string]bool

func (f fakeTokens) IsValid(serverName string) bool {
	return f[serverName]
}

// fakeValidator implements Validator with canned results.
type fakeValidator struct {
	name       string
	authorized bool
	err        error
	calls      int
}

func (f *fakeValidator) Name() string { return f.name }

func (f *fakeValidator) Validate(ctx context.Context, srv config.MCPServer) (bool, error) {
	f.calls++
	return f.authorized, f.err
}

func noEnv(string) (string, bool) { return "", false }

func envWith(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestEnvVarName(t *testing.T) {
	assert.Equal(t, "MCP_jira_authorization_token", EnvVarName("jira"))
	// The server name is used verbatim, no case folding
	assert.Equal(t, "MCP_Jira_authorization_token", EnvVarName("Jira"))
}

func TestEngine_ConfigTokenWins(t *testing.T) {
	e := NewEngine(fakeTokens{"jira": true}, WithEnvLookup(envWith(map[string]string{
		"MCP_jira_authorization_token": "env-token",
	})))

	srv := config.MCPServer{Name: "jira", AuthorizationToken: "static"}

	assert.True(t, e.IsAuthorized(context.Background(), srv))
	assert.Equal(t, MethodConfig, e.Method(context.Background(), srv))
}

func TestEngine_EnvironmentTier(t *testing.T) {
	// Empty token store: the environment alone authorizes
	e := NewEngine(fakeTokens{}, WithEnvLookup(envWith(map[string]string{
		"MCP_jira_authorization_token": "env-token",
	})))

	srv := config.MCPServer{Name: "jira"}

	assert.True(t, e.IsAuthorized(context.Background(), srv))
	assert.Equal(t, MethodEnvironment, e.Method(context.Background(), srv))
}

func TestEngine_EmptyEnvValueDoesNotAuthorize(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(envWith(map[string]string{
		"MCP_jira_authorization_token": "",
	})))

	srv := config.MCPServer{Name: "jira"}

	assert.False(t, e.IsAuthorized(context.Background(), srv))
	assert.Equal(t, MethodNone, e.Method(context.Background(), srv))
}

func TestEngine_OAuthTier(t *testing.T) {
	e := NewEngine(fakeTokens{"jira": true}, WithEnvLookup(noEnv))

	srv := config.MCPServer{Name: "jira"}

	assert.Equal(t, MethodOAuth, e.Method(context.Background(), srv))
}

func TestEngine_CustomTier(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))
	e.RegisterValidator(&fakeValidator{name: "git-credentials", authorized: true})

	srv := config.MCPServer{Name: "github", CustomAuth: "git-credentials"}

	assert.Equal(t, MethodCustom, e.Method(context.Background(), srv))
}

func TestEngine_CustomTierUnregisteredTag(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))

	srv := config.MCPServer{Name: "github", CustomAuth: "no-such-validator"}

	assert.False(t, e.IsAuthorized(context.Background(), srv))
}

func TestEngine_ValidatorErrorMeansNotAuthorized(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))
	e.RegisterValidator(&fakeValidator{name: "git-credentials", err: errors.New("probe failed")})

	srv := config.MCPServer{Name: "github", CustomAuth: "git-credentials"}

	// The decision never propagates validator failures
	assert.False(t, e.IsAuthorized(context.Background(), srv))
	assert.Equal(t, MethodNone, e.Method(context.Background(), srv))
}

func TestEngine_ValidatorNotConsultedWithoutTag(t *testing.T) {
	v := &fakeValidator{name: "git-credentials", authorized: true}
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))
	e.RegisterValidator(v)

	srv := config.MCPServer{Name: "github"}

	assert.False(t, e.IsAuthorized(context.Background(), srv))
	assert.Zero(t, v.calls)
}

func TestEngine_MethodNone(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))

	srv := config.MCPServer{Name: "jira"}

	assert.False(t, e.IsAuthorized(context.Background(), srv))
	assert.Equal(t, MethodNone, e.Method(context.Background(), srv))
}

func TestEngine_IsAuthorizedIdempotent(t *testing.T) {
	e := NewEngine(fakeTokens{"jira": true}, WithEnvLookup(noEnv))
	srv := config.MCPServer{Name: "jira"}

	first := e.IsAuthorized(context.Background(), srv)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.IsAuthorized(context.Background(), srv))
	}
}

func TestEngine_DetailsReportsAllTiers(t *testing.T) {
	e := NewEngine(fakeTokens{"jira": true}, WithEnvLookup(noEnv))

	// Config token AND valid OAuth token: both booleans set, config wins
	srv := config.MCPServer{Name: "jira", AuthorizationToken: "static"}
	d := e.Details(context.Background(), srv)

	assert.True(t, d.HasConfigToken)
	assert.False(t, d.HasEnvToken)
	assert.True(t, d.HasOAuthToken)
	assert.False(t, d.HasCustomAuth)
	assert.Equal(t, MethodConfig, d.Method)
}

func TestEngine_DetailsNone(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))

	d := e.Details(context.Background(), config.MCPServer{Name: "jira"})

	assert.Equal(t, Details{Method: MethodNone}, d)
}

func TestEngine_DetailsCustomOnly(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))
	e.RegisterValidator(&fakeValidator{name: "git-credentials", authorized: true})

	d := e.Details(context.Background(), config.MCPServer{Name: "github", CustomAuth: "git-credentials"})

	assert.True(t, d.HasCustomAuth)
	assert.Equal(t, MethodCustom, d.Method)
}

func TestEngine_RegisterValidatorReplaces(t *testing.T) {
	e := NewEngine(fakeTokens{}, WithEnvLookup(noEnv))
	e.RegisterValidator(&fakeValidator{name: "git-credentials", authorized: false})
	e.RegisterValidator(&fakeValidator{name: "git-credentials", authorized: true})

	srv := config.MCPServer{Name: "github", CustomAuth: "git-credentials"}
	assert.Equal(t, MethodCustom, e.Method(context.Background(), srv))
}
