package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"promptd/internal/config"
	"promptd/pkg/logging"
)

// newTestFlow wires a flow with quiet stores for callback tests.
func newTestFlow(t *testing.T, client *http.Client) (*Flow, *SessionStore, *TokenStore) {
	t.Helper()
	sessions := newTestSessionStore()
	tokens := NewTokenStore()
	resolver := NewResolver(WithHTTPClient(client))
	opts := []FlowOption{}
	if client != nil {
		opts = append(opts, WithFlowHTTPClient(client))
	}
	flow := NewFlow(sessions, tokens, resolver, "http://localhost:8090", "/oauth/callback", opts...)
	return flow, sessions, tokens
}

func explicitServer(clientType config.ClientType, tokenURL string) config.MCPServer {
	return config.MCPServer{
		Name: "jira",
		URL:  "https://jira.example.com/mcp",
		OAuth: &config.OAuthProvider{
			AuthorizationURL: "https://auth.example.com/authorize",
			TokenURL:         tokenURL,
			ClientID:         "client-1",
			ClientSecret:     "secret-1",
			ClientType:       clientType,
			Scope:            "read:jira-work",
		},
	}
}

func TestFlow_InitiateStaticTokenAlreadyAuthorized(t *testing.T) {
	flow, _, _ := newTestFlow(t, nil)

	_, err := flow.Initiate(context.Background(), config.MCPServer{
		Name:               "jira",
		URL:                "https://jira.example.com/mcp",
		AuthorizationToken: "static-token",
	})

	var already *AlreadyAuthorizedError
	if !errors.As(err, &already) {
		t.Fatalf("Expected *AlreadyAuthorizedError, got %v", err)
	}
	if already.ServerName != "jira" {
		t.Errorf("ServerName = %s, want jira", already.ServerName)
	}
}

func TestFlow_InitiateExplicitPublicClient(t *testing.T) {
	flow, sessions, _ := newTestFlow(t, nil)

	srv := explicitServer(config.ClientTypePublic, "https://auth.example.com/token")
	auth, err := flow.Initiate(context.Background(), srv)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	u, err := url.Parse(auth.URL)
	if err != nil {
		t.Fatalf("Invalid authorization URL: %v", err)
	}
	q := u.Query()

	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %s", q.Get("response_type"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %s", q.Get("code_challenge_method"))
	}
	if q.Get("code_challenge") == "" {
		t.Error("Expected code_challenge in URL")
	}
	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id = %s", q.Get("client_id"))
	}
	if q.Get("state") != auth.SessionID {
		t.Errorf("state = %s, want session ID %s", q.Get("state"), auth.SessionID)
	}
	if q.Get("scope") != "read:jira-work" {
		t.Errorf("scope = %s", q.Get("scope"))
	}
	if q.Get("redirect_uri") != "http://localhost:8090/oauth/callback" {
		t.Errorf("redirect_uri = %s", q.Get("redirect_uri"))
	}
	// A public client never exposes a secret anywhere in the URL
	if strings.Contains(auth.URL, "secret-1") || q.Get("client_secret") != "" {
		t.Error("Authorization URL must not carry a client secret")
	}

	if sessions.Count() != 1 {
		t.Errorf("Expected 1 pending session, got %d", sessions.Count())
	}
}

func TestFlow_InitiateDiscoveryPathRegistersClient(t *testing.T) {
	mux := http.NewServeMux()
	var base string

	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Metadata{
			Issuer:                base,
			AuthorizationEndpoint: base + "/authorize",
			TokenEndpoint:         base + "/token",
			RegistrationEndpoint:  base + "/register",
		})
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req clientRegistrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Malformed registration request: %v", err)
		}
		if len(req.RedirectURIs) != 1 || req.RedirectURIs[0] != "http://localhost:8090/oauth/callback" {
			t.Errorf("redirect_uris = %v", req.RedirectURIs)
		}
		if req.TokenEndpointAuthMethod != "none" {
			t.Errorf("token_endpoint_auth_method = %s", req.TokenEndpointAuthMethod)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(clientRegistrationResponse{ClientID: "dyn-client"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	flow, _, _ := newTestFlow(t, srv.Client())

	auth, err := flow.Initiate(context.Background(), config.MCPServer{
		Name: "jira",
		URL:  base + "/mcp",
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	u, _ := url.Parse(auth.URL)
	if u.Query().Get("client_id") != "dyn-client" {
		t.Errorf("client_id = %s, want dyn-client", u.Query().Get("client_id"))
	}
	if !strings.HasPrefix(auth.URL, base+"/authorize") {
		t.Errorf("Authorization URL %s not rooted at discovered endpoint", auth.URL)
	}
}

func TestFlow_InitiateDiscoveryFallbackScope(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	var registeredScope string

	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Metadata{
			Issuer:                base,
			AuthorizationEndpoint: base + "/authorize",
			TokenEndpoint:         base + "/token",
			RegistrationEndpoint:  base + "/register",
		})
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req clientRegistrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Malformed registration request: %v", err)
		}
		registeredScope = req.Scope
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(clientRegistrationResponse{ClientID: "dyn-client"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	flow, _, _ := newTestFlow(t, srv.Client())

	// No scope declared on the server: discovery falls back to read-only.
	auth, err := flow.Initiate(context.Background(), config.MCPServer{
		Name: "jira",
		URL:  base + "/mcp",
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if registeredScope != defaultScope {
		t.Errorf("Registration scope = %q, want %q", registeredScope, defaultScope)
	}
	u, _ := url.Parse(auth.URL)
	if u.Query().Get("scope") != defaultScope {
		t.Errorf("scope = %q, want %q", u.Query().Get("scope"), defaultScope)
	}

	// A declared scope wins over the fallback.
	auth, err = flow.Initiate(context.Background(), config.MCPServer{
		Name:  "jira",
		URL:   base + "/mcp",
		Scope: "repo:read",
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if registeredScope != "repo:read" {
		t.Errorf("Registration scope = %q, want repo:read", registeredScope)
	}
	u, _ = url.Parse(auth.URL)
	if u.Query().Get("scope") != "repo:read" {
		t.Errorf("scope = %q, want repo:read", u.Query().Get("scope"))
	}
}

func TestFlow_InitiateDiscoveryWithoutRegistrationEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		writeMetadata(w, base) // no registration_endpoint
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	flow, _, _ := newTestFlow(t, srv.Client())

	_, err := flow.Initiate(context.Background(), config.MCPServer{Name: "jira", URL: base + "/mcp"})
	if err == nil {
		t.Fatal("Expected error when no registration endpoint is offered")
	}
	if !strings.Contains(err.Error(), "registration") {
		t.Errorf("Error should mention registration: %v", err)
	}
}

func TestFlow_InitiateDiscoveryExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	flow, _, _ := newTestFlow(t, srv.Client())

	_, err := flow.Initiate(context.Background(), config.MCPServer{Name: "jira", URL: srv.URL + "/mcp"})

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("Expected *DiscoveryError, got %v", err)
	}
}

func TestFlow_CallbackProviderErrorShortCircuits(t *testing.T) {
	var tokenHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenHits, 1)
		json.NewEncoder(w).Encode(Token{AccessToken: "tok"})
	})
	provider := httptest.NewServer(mux)
	defer provider.Close()

	flow, _, _ := newTestFlow(t, provider.Client())

	auth, err := flow.Initiate(context.Background(), explicitServer(config.ClientTypePublic, provider.URL+"/token"))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	query := url.Values{}
	query.Set("error", "access_denied")
	query.Set("error_description", "User denied access")
	query.Set("state", auth.SessionID)
	query.Set("code", "should-never-be-used")

	_, err = flow.HandleCallback(context.Background(), query)

	var denied *ProviderDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Expected *ProviderDeniedError, got %v", err)
	}
	if denied.Code != "access_denied" {
		t.Errorf("Code = %s", denied.Code)
	}
	if denied.Description != "User denied access" {
		t.Errorf("Description = %s", denied.Description)
	}
	if hits := atomic.LoadInt32(&tokenHits); hits != 0 {
		t.Errorf("Token endpoint reached %d times despite provider error", hits)
	}
}

func TestFlow_CallbackMissingParameters(t *testing.T) {
	flow, _, _ := newTestFlow(t, nil)

	tests := []struct {
		name      string
		query     url.Values
		wantParam string
	}{
		{
			name:      "missing code",
			query:     url.Values{"state": {"some-state"}},
			wantParam: "code",
		},
		{
			name:      "missing state",
			query:     url.Values{"code": {"some-code"}},
			wantParam: "state",
		},
		{
			name:      "missing both reports code first",
			query:     url.Values{},
			wantParam: "code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.HandleCallback(context.Background(), tt.query)

			var missing *MissingParameterError
			if !errors.As(err, &missing) {
				t.Fatalf("Expected *MissingParameterError, got %v", err)
			}
			if missing.Param != tt.wantParam {
				t.Errorf("Param = %s, want %s", missing.Param, tt.wantParam)
			}
		})
	}
}

func TestFlow_CallbackUnknownState(t *testing.T) {
	flow, _, _ := newTestFlow(t, nil)

	query := url.Values{"code": {"c"}, "state": {"never-issued"}}
	_, err := flow.HandleCallback(context.Background(), query)

	var invalid *InvalidSessionError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected *InvalidSessionError, got %v", err)
	}
}

func TestFlow_CallbackUnknownStateLogsWarning(t *testing.T) {
	var logBuf bytes.Buffer
	logging.InitForCLI(logging.LevelWarn, &logBuf)
	defer logging.InitForCLI(logging.LevelInfo, io.Discard)

	flow, _, _ := newTestFlow(t, nil)

	query := url.Values{"code": {"c"}, "state": {"never-issued"}}
	_, err := flow.HandleCallback(context.Background(), query)

	var invalid *InvalidSessionError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected *InvalidSessionError, got %v", err)
	}
	if !strings.Contains(logBuf.String(), "unknown or expired state") {
		t.Errorf("Expected a warning about the rejected state, got log output: %q", logBuf.String())
	}
}

func TestFlow_CallbackSuccessStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %s", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "auth-code-1" {
			t.Errorf("code = %s", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("code_verifier") == "" {
			t.Error("Expected code_verifier in token request")
		}
		// Confidential client: the secret travels in the token POST
		if r.PostForm.Get("client_secret") != "secret-1" {
			t.Errorf("client_secret = %s", r.PostForm.Get("client_secret"))
		}
		// A plain OAuth response without id_token
		fmt.Fprint(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600,"vendor_hint":"custom"}`)
	})
	provider := httptest.NewServer(mux)
	defer provider.Close()

	flow, _, tokens := newTestFlow(t, provider.Client())

	auth, err := flow.Initiate(context.Background(), explicitServer(config.ClientTypeConfidential, provider.URL+"/token"))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	query := url.Values{"code": {"auth-code-1"}, "state": {auth.SessionID}}
	result, err := flow.HandleCallback(context.Background(), query)
	if err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}
	if result.ServerName != "jira" {
		t.Errorf("ServerName = %s", result.ServerName)
	}

	if !tokens.IsValid("jira") {
		t.Fatal("Expected a valid stored token after callback")
	}
	token := tokens.Get("jira")
	if token.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %s", token.AccessToken)
	}
	if token.ExpiresAt.IsZero() {
		t.Error("ExpiresAt should be computed from expires_in")
	}
	if token.Raw["vendor_hint"] != "custom" {
		t.Error("Raw token response should be preserved verbatim")
	}
	if token.IDToken != "" {
		t.Errorf("Unexpected id_token: %s", token.IDToken)
	}
}

func TestFlow_CallbackReplayRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer"}`)
	})
	provider := httptest.NewServer(mux)
	defer provider.Close()

	flow, _, _ := newTestFlow(t, provider.Client())

	auth, err := flow.Initiate(context.Background(), explicitServer(config.ClientTypePublic, provider.URL+"/token"))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	query := url.Values{"code": {"c"}, "state": {auth.SessionID}}
	if _, err := flow.HandleCallback(context.Background(), query); err != nil {
		t.Fatalf("First callback failed: %v", err)
	}

	_, err = flow.HandleCallback(context.Background(), query)
	var invalid *InvalidSessionError
	if !errors.As(err, &invalid) {
		t.Fatalf("Replayed callback should yield *InvalidSessionError, got %v", err)
	}
}

func TestFlow_CallbackTokenEndpointRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"code expired"}`)
	})
	provider := httptest.NewServer(mux)
	defer provider.Close()

	flow, _, tokens := newTestFlow(t, provider.Client())

	auth, err := flow.Initiate(context.Background(), explicitServer(config.ClientTypePublic, provider.URL+"/token"))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	query := url.Values{"code": {"c"}, "state": {auth.SessionID}}
	_, err = flow.HandleCallback(context.Background(), query)

	var exchange *TokenExchangeError
	if !errors.As(err, &exchange) {
		t.Fatalf("Expected *TokenExchangeError, got %v", err)
	}
	if exchange.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", exchange.StatusCode)
	}
	if !strings.Contains(exchange.Body, "invalid_grant") {
		t.Errorf("Body should carry the endpoint response: %s", exchange.Body)
	}
	if tokens.Count() != 0 {
		t.Error("No token should be stored after a failed exchange")
	}
}

func TestFlow_PublicClientExchangeOmitsSecret(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if _, present := r.PostForm["client_secret"]; present {
			t.Error("Public client token request must not carry client_secret")
		}
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer"}`)
	})
	provider := httptest.NewServer(mux)
	defer provider.Close()

	flow, _, _ := newTestFlow(t, provider.Client())

	auth, err := flow.Initiate(context.Background(), explicitServer(config.ClientTypePublic, provider.URL+"/token"))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	query := url.Values{"code": {"c"}, "state": {auth.SessionID}}
	if _, err := flow.HandleCallback(context.Background(), query); err != nil {
		t.Fatalf("HandleCallback failed: %v", err)
	}
}
