package oauth

import (
	"sync"
	"time"

	"promptd/pkg/logging"
)

// TokenStore provides thread-safe in-memory storage for OAuth tokens,
// keyed by MCP server name.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token

	now func() time.Time
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]*Token),
		now:    time.Now,
	}
}

// Put saves a token for the given server. The expiry time is computed from
// expires_in at storage time; a token without expires_in never expires.
func (ts *TokenStore) Put(serverName string, token *Token) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if token.ExpiresAt.IsZero() && token.ExpiresIn > 0 {
		token.ExpiresAt = ts.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	ts.tokens[serverName] = token
	logging.Debug("OAuth", "Stored token for server=%s (expires: %v)", serverName, token.ExpiresAt)
}

// Get retrieves the stored token for a server, expired or not.
// Returns nil when no token is stored.
func (ts *TokenStore) Get(serverName string) *Token {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.tokens[serverName]
}

// IsValid reports whether a usable token is stored for the server. The
// expiry boundary is exclusive: a token is invalid from the instant its
// expiry time is reached. A refresh token does not extend validity; the
// store never refreshes on its own.
func (ts *TokenStore) IsValid(serverName string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	token, exists := ts.tokens[serverName]
	if !exists || token.AccessToken == "" {
		return false
	}
	if token.ExpiresAt.IsZero() {
		return true
	}
	return ts.now().Before(token.ExpiresAt)
}

// Delete removes the token for a server.
func (ts *TokenStore) Delete(serverName string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	delete(ts.tokens, serverName)
	logging.Debug("OAuth", "Deleted token for server=%s", serverName)
}

// Names returns the server names with stored tokens.
func (ts *TokenStore) Names() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	names := make([]string, 0, len(ts.tokens))
	for name := range ts.tokens {
		names = append(names, name)
	}
	return names
}

// Count returns the number of stored tokens.
func (ts *TokenStore) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tokens)
}
