package utils

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()

	token, claims, err := GenerateToken(secret, Claims{UserID: "u1", CompanyID: "c1", Role: "admin"}, time.Hour, now)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.UserID != "u1" || parsed.CompanyID != "c1" || parsed.Role != "admin" || parsed.ID != claims.ID {
		t.Fatalf("unexpected claims %+v", parsed)
	}

	if _, err := ParseToken([]byte("other-secret"), token); err == nil {
		t.Fatal("expected signature check to fail with a different secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	token, _, err := GenerateToken(secret, Claims{UserID: "u1"}, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(secret, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
