package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestNewRefreshToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewRefreshToken()
		if err != nil {
			t.Fatalf("NewRefreshToken() unexpected error: %v", err)
		}
		if len(tok) != 2*RefreshTokenBytes {
			t.Fatalf("NewRefreshToken() length = %d, want %d", len(tok), 2*RefreshTokenBytes)
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("NewRefreshToken() not hex: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate refresh token %q", tok)
		}
		seen[tok] = true
	}
}

func TestRandomHexRejectsNonPositive(t *testing.T) {
	if _, err := RandomHex(0); err == nil {
		t.Error("RandomHex(0) expected error")
	}
}

func TestSigningKey(t *testing.T) {
	a := SigningKey("server", "user-a")
	b := SigningKey("server", "user-b")
	if bytes.Equal(a, b) {
		t.Error("SigningKey() should differ per user")
	}
	if !bytes.Equal(a, SigningKey("server", "user-a")) {
		t.Error("SigningKey() should be deterministic")
	}
	if bytes.Equal(a, SigningKey("other-server", "user-a")) {
		t.Error("SigningKey() should depend on the server secret")
	}
}
