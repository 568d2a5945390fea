package security

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// IntermediateTokenTTL bounds the window between primary login and the
// second authentication step.
const IntermediateTokenTTL = 10 * time.Minute

// Intermediate ticket type discriminators.
const (
	intermediateTypeUser  = "user_intermediate"
	intermediateTypeAdmin = "admin_intermediate"
)

// ErrIntermediateToken indicates a ticket that failed to decode, is missing
// its subject, or has expired. Callers surface all three the same way.
var ErrIntermediateToken = errors.New("invalid or expired intermediate token")

// intermediatePayload is the plaintext ticket body. The ticket is
// base64(JSON) with no signature and is never persisted server-side; it is
// consumable any number of times until expires_at passes.
type intermediatePayload struct {
	UserID    uint64 `json:"user_id,omitempty"`
	AdminID   uint64 `json:"admin_id,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
	Type      string `json:"type"`
}

// GenerateUserIntermediateToken issues a user ticket valid for ten minutes.
func GenerateUserIntermediateToken(userID uint64) string {
	return encodeIntermediate(intermediatePayload{
		UserID:    userID,
		ExpiresAt: time.Now().Add(IntermediateTokenTTL).Unix(),
		Type:      intermediateTypeUser,
	})
}

// GenerateAdminIntermediateToken issues an admin ticket valid for ten minutes.
func GenerateAdminIntermediateToken(adminID uint64) string {
	return encodeIntermediate(intermediatePayload{
		AdminID:   adminID,
		ExpiresAt: time.Now().Add(IntermediateTokenTTL).Unix(),
		Type:      intermediateTypeAdmin,
	})
}

// ParseUserIntermediateToken returns the subject user ID of a live ticket.
func ParseUserIntermediateToken(token string) (uint64, error) {
	payload, err := decodeIntermediate(token)
	if err != nil {
		return 0, err
	}
	if payload.UserID == 0 {
		return 0, ErrIntermediateToken
	}
	return payload.UserID, nil
}

// ParseAdminIntermediateToken returns the subject admin ID of a live ticket.
func ParseAdminIntermediateToken(token string) (uint64, error) {
	payload, err := decodeIntermediate(token)
	if err != nil {
		return 0, err
	}
	if payload.AdminID == 0 {
		return 0, ErrIntermediateToken
	}
	return payload.AdminID, nil
}

func encodeIntermediate(payload intermediatePayload) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payload is a fixed struct of scalars; marshal cannot fail.
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeIntermediate(token string) (intermediatePayload, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return intermediatePayload{}, ErrIntermediateToken
	}
	var payload intermediatePayload
	if errUnmarshal := json.Unmarshal(raw, &payload); errUnmarshal != nil {
		return intermediatePayload{}, ErrIntermediateToken
	}
	if payload.ExpiresAt == 0 || time.Now().Unix() > payload.ExpiresAt {
		return intermediatePayload{}, ErrIntermediateToken
	}
	return payload, nil
}
