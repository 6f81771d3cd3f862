package helpers

import (
	"testing"
	"time"
)

func TestSessionManager_GenerateAndParse(t *testing.T) {
	t.Parallel()

	m := NewSessionManager("super-secret", 48*time.Hour)

	token, exp, err := m.Generate("acc-123")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	want := time.Now().Add(48 * time.Hour)
	if d := exp.Sub(want); d < -5*time.Second || d > 5*time.Second {
		t.Fatalf("expiry %v not within 5s of now+2d", exp)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.AccountID != "acc-123" {
		t.Fatalf("account id mismatch: got %q want %q", claims.AccountID, "acc-123")
	}
	if claims.Subject != "acc-123" {
		t.Fatalf("subject mismatch: got %q", claims.Subject)
	}
}

func TestSessionManager_Expired(t *testing.T) {
	t.Parallel()

	m := NewSessionManager("secret", -time.Second)
	token, _, err := m.Generate("acc-1")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestSessionManager_WrongSecret(t *testing.T) {
	t.Parallel()

	token, _, err := NewSessionManager("right-secret", time.Hour).Generate("acc-2")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, err := NewSessionManager("wrong-secret", time.Hour).Parse(token); err == nil {
		t.Fatal("expected error for invalid signature, got nil")
	}
}

func TestSessionManager_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := NewSessionManager("k", time.Hour).Parse("not.a.jwt"); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}
