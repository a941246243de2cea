// Package server exposes promptd's HTTP API.
//
// The API surface covers prompt listing, per-server authorization status,
// starting browser OAuth flows, the provider callback, and token removal:
//
//   - GET    /api/prompts            - prompts with per-server authorization
//   - GET    /api/servers            - configured MCP servers and their status
//   - POST   /api/authorize/{server} - start an authorization flow
//   - GET    /oauth/callback         - OAuth provider redirect target
//   - DELETE /api/tokens/{server}    - drop a stored OAuth token
//   - GET    /health                 - liveness probe
//
// Authorization flows are delegated to internal/oauth; the decision about
// whether a server is usable comes from internal/authz.
package server
