package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"promptd/internal/config"
	"promptd/pkg/logging"
)

// defaultScope is requested on the discovery path when the server
// configuration declares no scope of its own.
const defaultScope = "read"

// Flow drives OAuth authorization flows for MCP servers: it builds
// authorization URLs, handles callbacks, and exchanges authorization codes
// for tokens. All state lives in the injected stores.
type Flow struct {
	sessions *SessionStore
	tokens   *TokenStore
	resolver *Resolver

	httpClient *http.Client

	publicURL    string
	callbackPath string
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithFlowHTTPClient sets the HTTP client used for token endpoint traffic.
func WithFlowHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// NewFlow creates a flow engine with the given stores and resolver.
// publicURL and callbackPath together form the OAuth redirect URI.
func NewFlow(sessions *SessionStore, tokens *TokenStore, resolver *Resolver, publicURL, callbackPath string, opts ...FlowOption) *Flow {
	f := &Flow{
		sessions:     sessions,
		tokens:       tokens,
		resolver:     resolver,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		publicURL:    publicURL,
		callbackPath: callbackPath,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedirectURI returns the full redirect URI for OAuth callbacks.
func (f *Flow) RedirectURI() string {
	return strings.TrimSuffix(f.publicURL, "/") + f.callbackPath
}

// Initiate starts an authorization flow for the given MCP server and returns
// the authorization URL to open in the user's browser.
//
// Servers with a static token return AlreadyAuthorizedError. Servers with an
// explicit provider block use its endpoints directly; all others go through
// metadata discovery and dynamic client registration.
func (f *Flow) Initiate(ctx context.Context, srv config.MCPServer) (*Authorization, error) {
	if srv.AuthorizationToken != "" {
		return nil, &AlreadyAuthorizedError{ServerName: srv.Name}
	}

	var (
		authEndpoint string
		proto        = Session{
			ServerName:  srv.Name,
			RedirectURI: f.RedirectURI(),
			Scope:       srv.Scope,
		}
	)

	if p := srv.OAuth; p != nil {
		authEndpoint = p.AuthorizationURL
		proto.TokenEndpoint = p.TokenURL
		proto.ClientID = p.ClientID
		if p.Scope != "" {
			proto.Scope = p.Scope
		}
		// Public clients rely on PKCE alone; only confidential clients send
		// their secret, and only in the token request.
		if p.EffectiveClientType() == config.ClientTypeConfidential {
			proto.ClientSecret = p.ClientSecret
		}
	} else {
		metadata, err := f.resolver.Resolve(ctx, srv.URL)
		if err != nil {
			return nil, err
		}
		if proto.Scope == "" {
			proto.Scope = defaultScope
		}
		proto.Issuer = metadata.Issuer
		proto.TokenEndpoint = metadata.TokenEndpoint
		authEndpoint = metadata.AuthorizationEndpoint

		reg, err := registerClient(ctx, f.httpClient, metadata, proto.RedirectURI, proto.Scope)
		if err != nil {
			return nil, fmt.Errorf("dynamic client registration for %s: %w", srv.Name, err)
		}
		proto.ClientID = reg.ClientID
		proto.ClientSecret = reg.ClientSecret
	}

	session, challenge, err := f.sessions.Create(proto)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization session: %w", err)
	}

	authURL, err := url.Parse(authEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := authURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", session.ClientID)
	query.Set("redirect_uri", session.RedirectURI)
	query.Set("state", session.ID)
	query.Set("code_challenge", challenge)
	query.Set("code_challenge_method", "S256")
	if session.Scope != "" {
		query.Set("scope", session.Scope)
	}
	authURL.RawQuery = query.Encode()

	logging.Info("OAuth", "Initiated authorization flow for server=%s", srv.Name)

	return &Authorization{
		URL:        authURL.String(),
		SessionID:  session.ID,
		ServerName: srv.Name,
	}, nil
}

// HandleCallback processes an OAuth callback. The checks run in a fixed
// order: a provider error aborts before the code or state is read, missing
// parameters abort before the session lookup, and only a consumable session
// reaches the token exchange.
func (f *Flow) HandleCallback(ctx context.Context, query url.Values) (*CallbackResult, error) {
	if errCode := query.Get("error"); errCode != "" {
		logging.Warn("OAuth", "Provider returned error on callback: %s", errCode)
		return nil, &ProviderDeniedError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" {
		return nil, &MissingParameterError{Param: "code"}
	}
	if state == "" {
		return nil, &MissingParameterError{Param: "state"}
	}

	session := f.sessions.Consume(state)
	if session == nil {
		logging.Warn("OAuth", "Callback with unknown or expired state rejected")
		return nil, &InvalidSessionError{State: state}
	}

	token, err := f.exchangeCode(ctx, session, code)
	if err != nil {
		return nil, err
	}

	token.Issuer = session.Issuer
	f.tokens.Put(session.ServerName, token)

	logging.Info("OAuth", "Completed authorization flow for server=%s", session.ServerName)
	return &CallbackResult{ServerName: session.ServerName}, nil
}

// exchangeCode exchanges an authorization code for tokens with a plain
// form-encoded POST. An absent id_token in the response is not an error;
// plain OAuth servers never send one.
func (f *Flow) exchangeCode(ctx context.Context, session *Session, code string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", session.RedirectURI)
	data.Set("client_id", session.ClientID)
	data.Set("code_verifier", session.CodeVerifier)
	if session.ClientSecret != "" {
		data.Set("client_secret", session.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", session.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug("OAuth", "Token exchange failed: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &TokenExchangeError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	// Keep the complete response; servers attach fields beyond the standard
	// set and callers may need them later.
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		token.Raw = raw
	}

	logging.Debug("OAuth", "Exchanged code for token (server=%s, expires_in=%d)",
		session.ServerName, token.ExpiresIn)

	return &token, nil
}
