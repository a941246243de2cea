package oauth

import (
	"fmt"
	"strings"
)

// DiscoveryError indicates that no authorization server metadata could be
// resolved for an MCP server after all discovery steps were exhausted.
type DiscoveryError struct {
	ServerURL string
	// Attempts records what each discovery step tried and why it failed.
	Attempts []string
}

func (e *DiscoveryError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("oauth discovery failed for %s", e.ServerURL)
	}
	return fmt.Sprintf("oauth discovery failed for %s: %s", e.ServerURL, strings.Join(e.Attempts, "; "))
}

// AlreadyAuthorizedError indicates an authorization flow was requested for a
// server that is covered by a static token and needs no flow.
type AlreadyAuthorizedError struct {
	ServerName string
}

func (e *AlreadyAuthorizedError) Error() string {
	return fmt.Sprintf("server %s is already authorized via a configured token", e.ServerName)
}

// ProviderDeniedError indicates the authorization server returned an error
// on the callback (for example the user denied consent). No token exchange
// is attempted.
type ProviderDeniedError struct {
	Code        string
	Description string
}

func (e *ProviderDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied by provider: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied by provider: %s", e.Code)
}

// MissingParameterError indicates a callback arrived without a required
// query parameter.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("callback missing required parameter %q", e.Param)
}

// InvalidSessionError indicates the state parameter of a callback did not
// match any pending session. The session may be unknown, already consumed,
// or expired; all three look identical to the caller.
type InvalidSessionError struct {
	State string
}

func (e *InvalidSessionError) Error() string {
	return "no pending authorization session for callback state"
}

// TokenExchangeError indicates the token endpoint rejected the code
// exchange. Body carries the endpoint's response verbatim for diagnosis.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}

// RegistrationError indicates dynamic client registration failed.
type RegistrationError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("client registration at %s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
