// Package twofactor implements the TOTP second factor: secret enrollment,
// QR provisioning, single-use recovery codes and the login challenge.
package twofactor

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/aaronarduino/goqrsvg"
	svg "github.com/ajstarks/svgo"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp/totp"
	"gorm.io/datatypes"

	"github.com/toolshelf/toolshelf/internal/security"
)

// RecoveryCodeCount is the size of a full recovery-code set.
const RecoveryCodeCount = 8

// recoveryCodeAlphabet matches the uppercase alphanumeric codes handed to
// users: two 5-character groups joined by a hyphen.
const recoveryCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// qrModuleSize is the edge length of one QR module in the rendered SVG.
const qrModuleSize = 5

// Service generates and verifies second-factor material. Secrets are stored
// encrypted; the cipher is the only way in or out of the stored form.
type Service struct {
	issuer string
	cipher *security.Cipher
}

// NewService constructs a Service. The issuer names the application inside
// authenticator apps.
func NewService(issuer string, cipher *security.Cipher) *Service {
	return &Service{issuer: issuer, cipher: cipher}
}

// Setup is the result of generating a fresh secret. The raw secret and QR
// code are shown to the principal exactly once; only EncryptedSecret is
// persisted.
type Setup struct {
	Secret          string // Raw base32 secret.
	EncryptedSecret string // Sealed form for storage.
	QRCodeSVG       string // Base64-encoded SVG of the provisioning URI.
	ManualEntryKey  string // Secret in 4-character groups for manual entry.
}

// GenerateSecret creates a new TOTP secret for the given account and renders
// its provisioning QR code. The secret is not active until confirmed.
func (s *Service) GenerateSecret(accountEmail string) (*Setup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("twofactor: generate secret: %w", err)
	}

	encrypted, err := s.cipher.EncryptString(key.Secret())
	if err != nil {
		return nil, fmt.Errorf("twofactor: encrypt secret: %w", err)
	}

	qrSVG, err := renderQRCodeSVG(key.URL())
	if err != nil {
		return nil, fmt.Errorf("twofactor: render qr: %w", err)
	}

	return &Setup{
		Secret:          key.Secret(),
		EncryptedSecret: encrypted,
		QRCodeSVG:       qrSVG,
		ManualEntryKey:  FormatManualEntryKey(key.Secret()),
	}, nil
}

// VerifyTOTP decrypts a stored secret and validates a code against it using
// the library's default clock-skew window.
func (s *Service) VerifyTOTP(encryptedSecret, code string) (bool, error) {
	secret, err := s.cipher.DecryptString(encryptedSecret)
	if err != nil {
		return false, err
	}
	return totp.Validate(code, secret), nil
}

// ChallengeResult reports the outcome of a login challenge.
type ChallengeResult struct {
	OK               bool
	UsedRecoveryCode bool
	// RemainingCodes holds the reduced recovery set when a recovery code
	// matched. The caller must persist it before treating the login as
	// complete.
	RemainingCodes datatypes.JSON
}

// VerifyChallenge runs the second-factor check for a login attempt. The
// recovery-code set is consulted before TOTP: a matching recovery code is
// consumed and TOTP verification is skipped entirely.
func (s *Service) VerifyChallenge(encryptedSecret string, recoveryCodes datatypes.JSON, code string) (ChallengeResult, error) {
	codes := DecodeRecoveryCodes(recoveryCodes)
	for i, candidate := range codes {
		if candidate != code {
			continue
		}
		remaining := make([]string, 0, len(codes)-1)
		remaining = append(remaining, codes[:i]...)
		remaining = append(remaining, codes[i+1:]...)
		encoded, err := EncodeRecoveryCodes(remaining)
		if err != nil {
			return ChallengeResult{}, err
		}
		return ChallengeResult{OK: true, UsedRecoveryCode: true, RemainingCodes: encoded}, nil
	}

	ok, err := s.VerifyTOTP(encryptedSecret, code)
	if err != nil {
		return ChallengeResult{}, err
	}
	return ChallengeResult{OK: ok}, nil
}

// IsWellFormedCode reports whether a submitted login code is exactly six
// ASCII digits.
func IsWellFormedCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// GenerateRecoveryCodes returns a full set of fresh single-use codes.
func GenerateRecoveryCodes() ([]string, error) {
	codes := make([]string, 0, RecoveryCodeCount)
	for i := 0; i < RecoveryCodeCount; i++ {
		left, err := randomGroup(5)
		if err != nil {
			return nil, err
		}
		right, err := randomGroup(5)
		if err != nil {
			return nil, err
		}
		codes = append(codes, left+"-"+right)
	}
	return codes, nil
}

func randomGroup(length int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(recoveryCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("twofactor: random group: %w", err)
		}
		b.WriteByte(recoveryCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// EncodeRecoveryCodes serializes a code set for the JSON column.
func EncodeRecoveryCodes(codes []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(codes)
	if err != nil {
		return nil, fmt.Errorf("twofactor: encode recovery codes: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// DecodeRecoveryCodes deserializes a stored code set. Malformed or empty
// columns decode to an empty set.
func DecodeRecoveryCodes(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		return nil
	}
	return codes
}

// CountRecoveryCodes returns the number of unused codes in a stored set.
func CountRecoveryCodes(raw datatypes.JSON) int {
	return len(DecodeRecoveryCodes(raw))
}

// FormatManualEntryKey renders a secret in space-separated 4-character
// groups for typing into an authenticator app.
func FormatManualEntryKey(secret string) string {
	var groups []string
	for i := 0; i < len(secret); i += 4 {
		end := i + 4
		if end > len(secret) {
			end = len(secret)
		}
		groups = append(groups, secret[i:end])
	}
	return strings.Join(groups, " ")
}

// renderQRCodeSVG encodes a provisioning URI as a base64 SVG image.
func renderQRCodeSVG(uri string) (string, error) {
	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	qrSVG := goqrsvg.NewQrSVG(code, qrModuleSize)
	qrSVG.StartQrSVG(canvas)
	if err := qrSVG.WriteQrSVG(canvas); err != nil {
		return "", err
	}
	canvas.End()

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
