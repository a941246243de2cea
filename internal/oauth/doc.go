// Package oauth implements the OAuth 2.1 authorization code flow with PKCE
// that promptd uses to obtain tokens for remote MCP servers.
//
// The package is organized around four pieces:
//
//   - Resolver discovers authorization server metadata for an MCP server URL.
//     It probes the server's WWW-Authenticate challenge for a protected
//     resource metadata reference first, then falls back to the RFC 8414 and
//     OpenID Connect well-known endpoints on the server's origin.
//
//   - SessionStore holds pending authorization sessions. The random session
//     ID doubles as the OAuth state parameter, and sessions are consumed
//     exactly once: a replayed or expired callback finds nothing.
//
//   - Flow drives the authorization flow end to end. Initiate builds the
//     authorization URL (registering a client dynamically when no provider
//     is configured) and HandleCallback validates the callback and exchanges
//     the code for tokens with a plain form-encoded POST. The exchange does
//     not require an id_token, so plain OAuth servers work as well as OIDC
//     providers.
//
//   - TokenStore keeps obtained tokens in memory, keyed by MCP server name.
//     Expiry is exclusive: a token is invalid from the instant its expiry
//     time is reached, and the store never refreshes tokens on its own.
//
// All stores take an injectable clock so expiry behavior is testable.
// Failures surface as typed errors (DiscoveryError, ProviderDeniedError,
// InvalidSessionError, TokenExchangeError, ...) that callers match with
// errors.As.
package oauth
