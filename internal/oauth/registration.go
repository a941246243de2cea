package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"promptd/pkg/logging"
)

// clientRegistrationRequest is the RFC 7591 dynamic registration payload.
type clientRegistrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// clientRegistrationResponse is the registration endpoint's answer.
type clientRegistrationResponse struct {
	ClientID       string   `json:"client_id"`
	ClientSecret   string   `json:"client_secret,omitempty"`
	RedirectURIs   []string `json:"redirect_uris,omitempty"`
	GrantTypes     []string `json:"grant_types,omitempty"`
	ClientIDIssued int64    `json:"client_id_issued_at,omitempty"`
}

// registerClient performs dynamic client registration against the metadata's
// registration endpoint. The registered client is public: it authenticates
// with PKCE alone (token_endpoint_auth_method "none").
func registerClient(ctx context.Context, httpClient *http.Client, metadata *Metadata, redirectURI, scope string) (*clientRegistrationResponse, error) {
	if metadata.RegistrationEndpoint == "" {
		return nil, fmt.Errorf("authorization server %s offers no registration endpoint", metadata.Issuer)
	}

	reqBody := clientRegistrationRequest{
		RedirectURIs:            []string{redirectURI},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
		ClientName:              "promptd",
		Scope:                   scope,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", metadata.RegistrationEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read registration response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, &RegistrationError{
			Endpoint:   metadata.RegistrationEndpoint,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var reg clientRegistrationResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registration response: %w", err)
	}
	if reg.ClientID == "" {
		return nil, fmt.Errorf("registration response missing client_id")
	}

	logging.Debug("OAuth", "Registered client at %s (client_id=%s)", metadata.RegistrationEndpoint, reg.ClientID)
	return &reg, nil
}
