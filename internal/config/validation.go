package config

import (
	"fmt"
	"net/url"
)

// Validate checks a loaded configuration for structural problems.
// It returns the first problem found.
func Validate(c *Config) error {
	seen := make(map[string]bool, len(c.MCPServers))
	for i := range c.MCPServers {
		srv := &c.MCPServers[i]
		if srv.Name == "" {
			return fmt.Errorf("mcpServers[%d]: name is required", i)
		}
		if seen[srv.Name] {
			return fmt.Errorf("mcpServers: duplicate server name %q", srv.Name)
		}
		seen[srv.Name] = true

		if srv.URL == "" {
			return fmt.Errorf("mcpServers[%s]: url is required", srv.Name)
		}
		if _, err := url.Parse(srv.URL); err != nil {
			return fmt.Errorf("mcpServers[%s]: invalid url: %w", srv.Name, err)
		}

		if srv.OAuth != nil {
			if err := validateProvider(srv.Name, srv.OAuth); err != nil {
				return err
			}
		}
	}

	promptNames := make(map[string]bool, len(c.Prompts))
	for i := range c.Prompts {
		p := &c.Prompts[i]
		if p.Name == "" {
			return fmt.Errorf("prompts[%d]: name is required", i)
		}
		if promptNames[p.Name] {
			return fmt.Errorf("prompts: duplicate prompt name %q", p.Name)
		}
		promptNames[p.Name] = true

		for _, ref := range p.Servers {
			if !seen[ref] {
				return fmt.Errorf("prompts[%s]: references unknown server %q", p.Name, ref)
			}
		}
	}

	return nil
}

func validateProvider(serverName string, p *OAuthProvider) error {
	if p.AuthorizationURL == "" {
		return fmt.Errorf("mcpServers[%s].oauth: authorizationUrl is required", serverName)
	}
	if p.TokenURL == "" {
		return fmt.Errorf("mcpServers[%s].oauth: tokenUrl is required", serverName)
	}
	if p.ClientID == "" {
		return fmt.Errorf("mcpServers[%s].oauth: clientId is required", serverName)
	}
	switch p.ClientType {
	case "", ClientTypeConfidential, ClientTypePublic:
	default:
		return fmt.Errorf("mcpServers[%s].oauth: unknown clientType %q", serverName, p.ClientType)
	}
	if p.EffectiveClientType() == ClientTypeConfidential && p.ClientSecret == "" {
		return fmt.Errorf("mcpServers[%s].oauth: confidential client requires clientSecret", serverName)
	}
	return nil
}
