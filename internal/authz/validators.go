package authz

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"promptd/internal/config"
)

// sshKeyFiles are the private key files probed by the git validator,
// in order.
var sshKeyFiles = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// GitCredentialsValidator reports authorization when the user has git
// credentials on disk: a non-empty ~/.git-credentials file or an SSH
// private key under ~/.ssh.
type GitCredentialsValidator struct {
	// Home overrides the probed home directory, primarily for tests.
	Home string
}

// Name implements Validator.
func (v *GitCredentialsValidator) Name() string {
	return "git-credentials"
}

// Validate implements Validator.
func (v *GitCredentialsValidator) Validate(ctx context.Context, srv config.MCPServer) (bool, error) {
	home, err := v.homeDir()
	if err != nil {
		return false, err
	}

	if info, err := os.Stat(filepath.Join(home, ".git-credentials")); err == nil && info.Size() > 0 {
		return true, nil
	}

	for _, key := range sshKeyFiles {
		if _, err := os.Stat(filepath.Join(home, ".ssh", key)); err == nil {
			return true, nil
		}
	}

	return false, nil
}

func (v *GitCredentialsValidator) homeDir() (string, error) {
	if v.Home != "" {
		return v.Home, nil
	}
	return os.UserHomeDir()
}

// GitHubSessionValidator reports authorization when the gh CLI has a stored
// session for github.com (an oauth_token entry in its hosts file).
type GitHubSessionValidator struct {
	// Home overrides the probed home directory, primarily for tests.
	Home string
}

// Name implements Validator.
func (v *GitHubSessionValidator) Name() string {
	return "github-session"
}

// ghHostEntry is the slice of the gh hosts file this validator reads.
type ghHostEntry struct {
	OAuthToken string `yaml:"oauth_token"`
	User       string `yaml:"user"`
}

// Validate implements Validator.
func (v *GitHubSessionValidator) Validate(ctx context.Context, srv config.MCPServer) (bool, error) {
	home := v.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return false, err
		}
	}

	data, err := os.ReadFile(filepath.Join(home, ".config", "gh", "hosts.yml"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var hosts map[string]ghHostEntry
	if err := yaml.Unmarshal(data, &hosts); err != nil {
		return false, err
	}

	entry, ok := hosts["github.com"]
	return ok && entry.OAuthToken != "", nil
}

// RegisterDefaultValidators registers the validators promptd ships with.
func RegisterDefaultValidators(e *Engine) {
	e.RegisterValidator(&GitCredentialsValidator{})
	e.RegisterValidator(&GitHubSessionValidator{})
}
