// Package authz decides whether promptd holds credentials for an MCP server.
//
// The decision walks four tiers in a fixed order and stops at the first hit:
//
//  1. "config": a static token in the server's configuration
//  2. "environment": a MCP_{serverName}_authorization_token variable
//  3. "oauth": a valid token in the OAuth token store
//  4. "custom": a registered validator for the server's customAuth tag
//
// The engine never returns an error from a decision. A validator that fails
// simply does not authorize its tier; nothing propagates. Details exposes
// all four tiers at once for diagnostics, without mutating any state.
package authz
