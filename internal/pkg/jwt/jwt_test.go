package jwt

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "student", "test-secret")
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}

	claims, err := ParseToken(token, "test-secret")
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.Role != "student" {
		t.Fatalf("expected role student, got %q", claims.Role)
	}

	id, err := UserIDFromClaims(claims)
	if err != nil {
		t.Fatalf("unexpected error extracting user id: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user id 42, got %d", id)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(1, "student", "secret-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken(token, "secret-b"); err == nil {
		t.Fatalf("expected wrong-secret token to fail verification")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateTokenWithTTL(1, "student", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken(token, "secret"); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestGenerateTokenMissingSecret(t *testing.T) {
	if _, err := GenerateToken(1, "student", ""); err == nil {
		t.Fatalf("expected missing secret to error")
	}
}
