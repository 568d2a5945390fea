package security

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func TestUserIntermediateTokenRoundTrip(t *testing.T) {
	token := GenerateUserIntermediateToken(42)

	userID, err := ParseUserIntermediateToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user ID 42, got %d", userID)
	}
}

func TestAdminIntermediateTokenRoundTrip(t *testing.T) {
	token := GenerateAdminIntermediateToken(7)

	adminID, err := ParseAdminIntermediateToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if adminID != 7 {
		t.Fatalf("expected admin ID 7, got %d", adminID)
	}
}

func TestIntermediateTokenKindsAreDisjoint(t *testing.T) {
	userToken := GenerateUserIntermediateToken(42)
	if _, err := ParseAdminIntermediateToken(userToken); err == nil {
		t.Fatalf("user ticket accepted as admin ticket")
	}

	adminToken := GenerateAdminIntermediateToken(7)
	if _, err := ParseUserIntermediateToken(adminToken); err == nil {
		t.Fatalf("admin ticket accepted as user ticket")
	}
}

func TestIntermediateTokenExpired(t *testing.T) {
	raw, errMarshal := json.Marshal(intermediatePayload{
		UserID:    42,
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		Type:      intermediateTypeUser,
	})
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	token := base64.StdEncoding.EncodeToString(raw)

	if _, err := ParseUserIntermediateToken(token); err == nil {
		t.Fatalf("expected expired ticket to be rejected")
	}
}

func TestIntermediateTokenMalformed(t *testing.T) {
	cases := []string{
		"",
		"not base64!!!",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"expires_at":0,"type":"user_intermediate"}`)),
	}
	for _, token := range cases {
		if _, err := ParseUserIntermediateToken(token); err == nil {
			t.Fatalf("expected rejection for %q", token)
		}
	}
}

func TestIntermediateTokenMissingSubject(t *testing.T) {
	raw, errMarshal := json.Marshal(intermediatePayload{
		ExpiresAt: time.Now().Add(IntermediateTokenTTL).Unix(),
		Type:      intermediateTypeUser,
	})
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	token := base64.StdEncoding.EncodeToString(raw)

	if _, err := ParseUserIntermediateToken(token); err == nil {
		t.Fatalf("expected ticket without subject to be rejected")
	}
}
