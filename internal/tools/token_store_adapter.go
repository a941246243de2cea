package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/client/transport"

	"promptd/internal/oauth"
)

// serverTokenStore implements mcp-go's transport.TokenStore for one MCP
// server. Static credentials (config or environment tier) are served as a
// fixed non-expiring bearer; the OAuth tier reads through to the shared
// token store and persists refreshed tokens back into it.
type serverTokenStore struct {
	serverName string

	// static, when set, short-circuits the OAuth store entirely.
	static oauth.RedactedToken

	tokens *oauth.TokenStore
}

// newStaticTokenStore serves a fixed bearer token.
func newStaticTokenStore(serverName string, token oauth.RedactedToken) *serverTokenStore {
	return &serverTokenStore{
		serverName: serverName,
		static:     token,
	}
}

// newOAuthTokenStore reads through to the shared OAuth token store.
func newOAuthTokenStore(serverName string, tokens *oauth.TokenStore) *serverTokenStore {
	return &serverTokenStore{
		serverName: serverName,
		tokens:     tokens,
	}
}

// GetToken returns the current token for the server. Returns
// transport.ErrNoToken when nothing usable is stored, which mcp-go turns
// into its typed authorization-required error.
func (s *serverTokenStore) GetToken(ctx context.Context) (*transport.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.static.IsEmpty() {
		return &transport.Token{
			AccessToken: s.static.Value(),
			TokenType:   "Bearer",
		}, nil
	}

	if s.tokens == nil {
		return nil, transport.ErrNoToken
	}

	token := s.tokens.Get(s.serverName)
	if token == nil || token.AccessToken == "" {
		return nil, transport.ErrNoToken
	}

	// Bridge through the oauth2 token type so its Type() default applies
	// when the provider omitted token_type.
	bridged := token.ToOAuth2Token()
	return &transport.Token{
		AccessToken:  bridged.AccessToken,
		TokenType:    bridged.Type(),
		RefreshToken: bridged.RefreshToken,
		ExpiresAt:    bridged.Expiry,
	}, nil
}

// SaveToken persists a token mcp-go writes back after a refresh. Static
// credentials have nothing to persist.
func (s *serverTokenStore) SaveToken(ctx context.Context, token *transport.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.static.IsEmpty() || s.tokens == nil || token == nil {
		return nil
	}

	s.tokens.Put(s.serverName, &oauth.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
	})
	return nil
}

// Ensure serverTokenStore implements transport.TokenStore at compile time.
var _ transport.TokenStore = (*serverTokenStore)(nil)
