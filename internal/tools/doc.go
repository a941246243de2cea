// Package tools connects promptd to the MCP servers a prompt references.
//
// Every connection is gated on the authorization decision engine: a server
// the engine does not authorize is refused with NotAuthorizedError before
// any network traffic. Authorized connections use mcp-go's StreamableHTTP
// client with bearer injection through a transport.TokenStore adapter, so
// the token resolved for a server (config, environment, or OAuth tier)
// rides along on every request.
package tools
