package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	verifier, challenge, err := generatePKCE()
	if err != nil {
		t.Fatalf("generatePKCE failed: %v", err)
	}

	if verifier == "" || challenge == "" {
		t.Fatal("Expected non-empty verifier and challenge")
	}

	// 32 raw bytes encode to 43 base64url characters
	if len(verifier) != 43 {
		t.Errorf("Verifier length = %d, want 43", len(verifier))
	}

	// S256: challenge is the base64url-encoded SHA-256 of the verifier
	hash := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(hash[:])
	if challenge != want {
		t.Errorf("Challenge does not match S256 of verifier: got %s want %s", challenge, want)
	}

	// base64url raw encoding never contains padding or URL-unsafe characters
	for _, s := range []string{verifier, challenge} {
		if strings.ContainsAny(s, "=+/") {
			t.Errorf("Value %q contains characters outside the base64url alphabet", s)
		}
	}
}

func TestGeneratePKCE_VerifiersAreUnique(t *testing.T) {
	v1, _, err := generatePKCE()
	if err != nil {
		t.Fatalf("generatePKCE failed: %v", err)
	}
	v2, _, err := generatePKCE()
	if err != nil {
		t.Fatalf("generatePKCE failed: %v", err)
	}

	if v1 == v2 {
		t.Error("Two generated verifiers should not match")
	}
}

func TestGenerateSessionID(t *testing.T) {
	id, err := generateSessionID()
	if err != nil {
		t.Fatalf("generateSessionID failed: %v", err)
	}
	if len(id) != 43 {
		t.Errorf("Session ID length = %d, want 43", len(id))
	}
	if strings.ContainsAny(id, "=+/") {
		t.Errorf("Session ID %q contains characters outside the base64url alphabet", id)
	}
}
