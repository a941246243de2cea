package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// generatePKCE generates a PKCE code verifier and its S256 challenge.
func generatePKCE() (verifier, challenge string, err error) {
	// 32 random bytes for the verifier
	verifierBytes := make([]byte, 32)
	if _, err := rand.Read(verifierBytes); err != nil {
		return "", "", err
	}

	verifier = base64.RawURLEncoding.EncodeToString(verifierBytes)

	// S256 challenge
	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])

	return verifier, challenge, nil
}

// generateSessionID generates a random session ID, used verbatim as the
// OAuth state parameter.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
