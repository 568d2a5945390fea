package twofactor

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/toolshelf/toolshelf/internal/security"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cipher, errCipher := security.NewCipher("twofactor-test-key")
	if errCipher != nil {
		t.Fatalf("new cipher: %v", errCipher)
	}
	return NewService("Toolshelf", cipher)
}

func TestGenerateSecretProducesProvisioningMaterial(t *testing.T) {
	service := newTestService(t)

	setup, err := service.GenerateSecret("alex@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	if setup.Secret == "" {
		t.Fatalf("expected raw secret")
	}
	if setup.EncryptedSecret == "" || setup.EncryptedSecret == setup.Secret {
		t.Fatalf("expected encrypted secret distinct from raw secret")
	}
	if setup.ManualEntryKey != FormatManualEntryKey(setup.Secret) {
		t.Fatalf("manual entry key mismatch")
	}

	raw, errDecode := base64.StdEncoding.DecodeString(setup.QRCodeSVG)
	if errDecode != nil {
		t.Fatalf("decode qr: %v", errDecode)
	}
	if !strings.Contains(string(raw), "<svg") {
		t.Fatalf("expected SVG payload, got %q", string(raw[:40]))
	}
}

func TestVerifyTOTPAcceptsCurrentCode(t *testing.T) {
	service := newTestService(t)

	setup, err := service.GenerateSecret("alex@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	code, errCode := totp.GenerateCode(setup.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}

	valid, errVerify := service.VerifyTOTP(setup.EncryptedSecret, code)
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if !valid {
		t.Fatalf("expected current code to validate")
	}

	valid, errVerify = service.VerifyTOTP(setup.EncryptedSecret, "000000")
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if valid {
		t.Fatalf("expected bogus code to fail")
	}
}

func TestVerifyChallengeConsumesRecoveryCode(t *testing.T) {
	service := newTestService(t)

	setup, err := service.GenerateSecret("alex@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	codes, errCodes := GenerateRecoveryCodes()
	if errCodes != nil {
		t.Fatalf("generate recovery codes: %v", errCodes)
	}
	stored, errEncode := EncodeRecoveryCodes(codes)
	if errEncode != nil {
		t.Fatalf("encode: %v", errEncode)
	}

	result, errVerify := service.VerifyChallenge(setup.EncryptedSecret, stored, codes[3])
	if errVerify != nil {
		t.Fatalf("challenge: %v", errVerify)
	}
	if !result.OK || !result.UsedRecoveryCode {
		t.Fatalf("expected recovery code to pass the challenge: %+v", result)
	}

	remaining := DecodeRecoveryCodes(result.RemainingCodes)
	if len(remaining) != RecoveryCodeCount-1 {
		t.Fatalf("expected %d remaining codes, got %d", RecoveryCodeCount-1, len(remaining))
	}
	for _, code := range remaining {
		if code == codes[3] {
			t.Fatalf("consumed code still present")
		}
	}

	// The reduced set no longer accepts the consumed code.
	result, errVerify = service.VerifyChallenge(setup.EncryptedSecret, result.RemainingCodes, codes[3])
	if errVerify != nil {
		t.Fatalf("challenge: %v", errVerify)
	}
	if result.OK {
		t.Fatalf("expected consumed code to be rejected")
	}
}

func TestVerifyChallengeFallsBackToTOTP(t *testing.T) {
	service := newTestService(t)

	setup, err := service.GenerateSecret("alex@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	codes, errCodes := GenerateRecoveryCodes()
	if errCodes != nil {
		t.Fatalf("generate recovery codes: %v", errCodes)
	}
	stored, errEncode := EncodeRecoveryCodes(codes)
	if errEncode != nil {
		t.Fatalf("encode: %v", errEncode)
	}

	code, errCode := totp.GenerateCode(setup.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}

	result, errVerify := service.VerifyChallenge(setup.EncryptedSecret, stored, code)
	if errVerify != nil {
		t.Fatalf("challenge: %v", errVerify)
	}
	if !result.OK || result.UsedRecoveryCode {
		t.Fatalf("expected TOTP path to pass: %+v", result)
	}
}

func TestGenerateRecoveryCodesFormat(t *testing.T) {
	codes, err := GenerateRecoveryCodes()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(codes) != RecoveryCodeCount {
		t.Fatalf("expected %d codes, got %d", RecoveryCodeCount, len(codes))
	}
	for _, code := range codes {
		if len(code) != 11 || code[5] != '-' {
			t.Fatalf("unexpected code shape %q", code)
		}
		for i, c := range code {
			if i == 5 {
				continue
			}
			if !strings.ContainsRune(recoveryCodeAlphabet, c) {
				t.Fatalf("unexpected character in %q", code)
			}
		}
	}
}

func TestIsWellFormedCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"12 456", false},
		{"", false},
		{"ABCDE-FGHIJ", false},
	}
	for _, tc := range cases {
		if got := IsWellFormedCode(tc.code); got != tc.want {
			t.Fatalf("IsWellFormedCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestDecodeRecoveryCodesMalformed(t *testing.T) {
	if DecodeRecoveryCodes(nil) != nil {
		t.Fatalf("expected nil for empty column")
	}
	if DecodeRecoveryCodes([]byte("not json")) != nil {
		t.Fatalf("expected nil for malformed column")
	}
	if CountRecoveryCodes([]byte(`["A","B"]`)) != 2 {
		t.Fatalf("expected count 2")
	}
}

func TestFormatManualEntryKey(t *testing.T) {
	if got := FormatManualEntryKey("ABCDEFGH"); got != "ABCD EFGH" {
		t.Fatalf("got %q", got)
	}
	if got := FormatManualEntryKey("ABCDEF"); got != "ABCD EF" {
		t.Fatalf("got %q", got)
	}
}
