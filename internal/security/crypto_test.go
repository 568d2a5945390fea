package security

import (
	"errors"
	"testing"
)

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("app-encryption-key")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	sealed, err := cipher.EncryptString("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if sealed == "JBSWY3DPEHPK3PXP" {
		t.Fatalf("ciphertext equals plaintext")
	}

	plain, err := cipher.DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("expected round trip, got %q", plain)
	}
}

func TestCipherNoncesDiffer(t *testing.T) {
	cipher, err := NewCipher("app-encryption-key")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	first, err := cipher.EncryptString("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	second, err := cipher.EncryptString("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct ciphertexts for same plaintext")
	}
}

func TestCipherWrongKey(t *testing.T) {
	cipher, err := NewCipher("key-one")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	other, err := NewCipher("key-two")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	sealed, err := cipher.EncryptString("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, errDecrypt := other.DecryptString(sealed); !errors.Is(errDecrypt, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", errDecrypt)
	}
}

func TestCipherRejectsGarbage(t *testing.T) {
	cipher, err := NewCipher("app-encryption-key")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	for _, sealed := range []string{"", "not base64!!!", "AAAA"} {
		if _, errDecrypt := cipher.DecryptString(sealed); errDecrypt == nil {
			t.Fatalf("expected error for %q", sealed)
		}
	}
}
