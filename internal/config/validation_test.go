package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validServer(name string) MCPServer {
	return MCPServer{Name: name, URL: "https://" + name + ".example.com/mcp"}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "empty config is valid",
			cfg:  Config{},
		},
		{
			name: "valid servers and prompts",
			cfg: Config{
				MCPServers: []MCPServer{validServer("jira"), validServer("github")},
				Prompts: []Prompt{
					{Name: "p1", Servers: []string{"jira", "github"}},
				},
			},
		},
		{
			name:    "server without name",
			cfg:     Config{MCPServers: []MCPServer{{URL: "https://x.example.com"}}},
			wantErr: "name is required",
		},
		{
			name:    "server without url",
			cfg:     Config{MCPServers: []MCPServer{{Name: "jira"}}},
			wantErr: "url is required",
		},
		{
			name:    "duplicate server names",
			cfg:     Config{MCPServers: []MCPServer{validServer("jira"), validServer("jira")}},
			wantErr: "duplicate server name",
		},
		{
			name: "prompt referencing unknown server",
			cfg: Config{
				MCPServers: []MCPServer{validServer("jira")},
				Prompts:    []Prompt{{Name: "p1", Servers: []string{"github"}}},
			},
			wantErr: "unknown server",
		},
		{
			name: "duplicate prompt names",
			cfg: Config{
				Prompts: []Prompt{{Name: "p1"}, {Name: "p1"}},
			},
			wantErr: "duplicate prompt name",
		},
		{
			name: "provider missing token url",
			cfg: Config{
				MCPServers: []MCPServer{{
					Name: "jira",
					URL:  "https://jira.example.com/mcp",
					OAuth: &OAuthProvider{
						AuthorizationURL: "https://auth.example.com/authorize",
						ClientID:         "abc",
					},
				}},
			},
			wantErr: "tokenUrl is required",
		},
		{
			name: "confidential provider without secret",
			cfg: Config{
				MCPServers: []MCPServer{{
					Name: "jira",
					URL:  "https://jira.example.com/mcp",
					OAuth: &OAuthProvider{
						AuthorizationURL: "https://auth.example.com/authorize",
						TokenURL:         "https://auth.example.com/token",
						ClientID:         "abc",
						ClientType:       ClientTypeConfidential,
					},
				}},
			},
			wantErr: "requires clientSecret",
		},
		{
			name: "public provider without secret is fine",
			cfg: Config{
				MCPServers: []MCPServer{{
					Name: "jira",
					URL:  "https://jira.example.com/mcp",
					OAuth: &OAuthProvider{
						AuthorizationURL: "https://auth.example.com/authorize",
						TokenURL:         "https://auth.example.com/token",
						ClientID:         "abc",
						ClientType:       ClientTypePublic,
					},
				}},
			},
		},
		{
			name: "unknown client type",
			cfg: Config{
				MCPServers: []MCPServer{{
					Name: "jira",
					URL:  "https://jira.example.com/mcp",
					OAuth: &OAuthProvider{
						AuthorizationURL: "https://auth.example.com/authorize",
						TokenURL:         "https://auth.example.com/token",
						ClientID:         "abc",
						ClientType:       "hybrid",
					},
				}},
			},
			wantErr: "unknown clientType",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveClientType(t *testing.T) {
	assert.Equal(t, ClientTypePublic, (&OAuthProvider{}).EffectiveClientType())
	assert.Equal(t, ClientTypeConfidential, (&OAuthProvider{ClientSecret: "s"}).EffectiveClientType())
	assert.Equal(t, ClientTypePublic, (&OAuthProvider{ClientSecret: "s", ClientType: ClientTypePublic}).EffectiveClientType())
}
