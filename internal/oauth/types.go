package oauth

import (
	"time"

	"golang.org/x/oauth2"
)

// Token represents an OAuth token obtained for an MCP server.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	// ExpiresAt is computed from ExpiresIn when the token is stored.
	// A zero ExpiresAt means the token does not expire.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Issuer identifies the authorization server that minted the token.
	Issuer string `json:"issuer,omitempty"`

	// Raw preserves the complete token endpoint response, including any
	// fields this struct does not model.
	Raw map[string]any `json:"-"`
}

// ToOAuth2Token converts to the golang.org/x/oauth2 token type for use with
// libraries that expect it.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// Session is a pending authorization flow awaiting its callback.
// The ID doubles as the OAuth state parameter.
type Session struct {
	ID         string
	ServerName string
	Issuer     string

	// Everything the callback needs to finish the exchange.
	TokenEndpoint string
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	CodeVerifier  string
	Scope         string

	CreatedAt time.Time
}

// Metadata is the authorization server metadata document (RFC 8414).
// The same shape covers OpenID Connect discovery documents.
type Metadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	RegistrationEndpoint          string   `json:"registration_endpoint,omitempty"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// protectedResourceMetadata is the OAuth protected resource metadata
// document (RFC 9728), referenced from WWW-Authenticate challenges.
type protectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
}

// AuthChallenge holds the parsed parameters of a WWW-Authenticate header.
type AuthChallenge struct {
	Scheme              string
	Realm               string
	Scope               string
	ResourceMetadataURL string
	Error               string
	ErrorDescription    string
}

// Authorization is the result of initiating an authorization flow: the URL
// to send the user's browser to, and the session awaiting the callback.
type Authorization struct {
	URL        string `json:"authorizationUrl"`
	SessionID  string `json:"sessionId"`
	ServerName string `json:"serverName"`
}

// CallbackResult reports a completed callback.
type CallbackResult struct {
	ServerName string
}
