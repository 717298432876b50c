package security

import (
	"strings"
	"testing"
	"time"
)

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := NewInviteCode(8)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("want 8 chars, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(inviteAlphabet, c) {
				t.Fatalf("char %q outside alphabet in %q", c, code)
			}
		}
		if _, ok := seen[code]; ok {
			t.Fatalf("duplicate code %q in 100 draws", code)
		}
		seen[code] = struct{}{}
	}
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	s := NewTokenSigner("test-secret", time.Hour)

	token, err := s.Sign("user-123", "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	uid, uname, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uid != "user-123" || uname != "alice" {
		t.Fatalf("claims mismatch: %s / %s", uid, uname)
	}
}

func TestTokenSigner_RejectsBadTokens(t *testing.T) {
	s := NewTokenSigner("test-secret", time.Hour)

	if _, _, err := s.Parse(""); err == nil {
		t.Fatal("empty token must be rejected")
	}
	if _, _, err := s.Parse("not-a-jwt"); err == nil {
		t.Fatal("garbage token must be rejected")
	}

	// чужой секрет
	other := NewTokenSigner("other-secret", time.Hour)
	token, _ := other.Sign("user-123", "alice")
	if _, _, err := s.Parse(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	// истёкший
	expired := NewTokenSigner("test-secret", -time.Minute)
	token, _ = expired.Sign("user-123", "alice")
	if _, _, err := s.Parse(token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}
