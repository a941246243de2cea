package oauth

import (
	"fmt"
	"regexp"
	"strings"
)

var authParamRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseWWWAuthenticate parses a WWW-Authenticate header value.
//
// Example headers:
//
//	Bearer realm="https://auth.example.com"
//	Bearer resource="https://mcp.example.com/.well-known/oauth-protected-resource"
//	Bearer resource_metadata="https://mcp.example.com/.well-known/oauth-protected-resource", scope="mcp"
//
// Both the resource and resource_metadata parameter names are accepted for
// the protected resource metadata reference; resource takes precedence.
func ParseWWWAuthenticate(header string) (*AuthChallenge, error) {
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	// Split into scheme and parameters
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	challenge := &AuthChallenge{
		Scheme: parts[0],
	}

	if len(parts) > 1 {
		params := parseAuthParams(parts[1])

		if realm, ok := params["realm"]; ok {
			challenge.Realm = realm
		}
		if resource, ok := params["resource"]; ok {
			challenge.ResourceMetadataURL = resource
		} else if resourceMeta, ok := params["resource_metadata"]; ok {
			challenge.ResourceMetadataURL = resourceMeta
		}
		if scope, ok := params["scope"]; ok {
			challenge.Scope = scope
		}
		if errCode, ok := params["error"]; ok {
			challenge.Error = errCode
		}
		if errDesc, ok := params["error_description"]; ok {
			challenge.ErrorDescription = errDesc
		}
	}

	return challenge, nil
}

// parseAuthParams parses the parameter portion of a WWW-Authenticate header.
// Parameters are in the format: key1="value1", key2="value2"
func parseAuthParams(paramStr string) map[string]string {
	params := make(map[string]string)

	matches := authParamRegex.FindAllStringSubmatch(paramStr, -1)
	for _, match := range matches {
		if len(match) == 3 {
			params[strings.ToLower(match[1])] = match[2]
		}
	}

	return params
}
