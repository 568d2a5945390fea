package security

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "jwt-test-secret"

func TestUserTokenRoundTrip(t *testing.T) {
	token, err := GenerateUserToken(testSecret, 42, "Alex", "alex@example.com", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseUserToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "alex@example.com" || claims.Name != "Alex" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken(testSecret, 7, "admin@example.com", "moderator", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAdminToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != 7 || claims.Role != "moderator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenKindsAreDisjoint(t *testing.T) {
	userToken, err := GenerateUserToken(testSecret, 42, "Alex", "alex@example.com", time.Hour)
	if err != nil {
		t.Fatalf("generate user token: %v", err)
	}
	if _, errParse := ParseAdminToken(testSecret, userToken); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected user token rejected as admin, got %v", errParse)
	}

	adminToken, err := GenerateAdminToken(testSecret, 7, "admin@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("generate admin token: %v", err)
	}
	if _, errParse := ParseUserToken(testSecret, adminToken); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected admin token rejected as user, got %v", errParse)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateUserToken(testSecret, 42, "Alex", "alex@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, errParse := ParseUserToken(testSecret, token); !errors.Is(errParse, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", errParse)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := GenerateUserToken(testSecret, 42, "Alex", "alex@example.com", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, errParse := ParseUserToken("other-secret", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", errParse)
	}
}
