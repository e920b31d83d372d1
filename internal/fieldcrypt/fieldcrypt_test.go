package fieldcrypt

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec, err := New("unit-test-field-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tests := []string{
		"09171234567",
		"Juan Dela Cruz",
		"unit 4b, 22 kalayaan ave",
		"",
		"ñandú@example.com",
		strings.Repeat("x", 300),
	}

	for _, plaintext := range tests {
		t.Run(plaintext, func(t *testing.T) {
			got, err := codec.Decrypt(codec.Encrypt(plaintext))
			if err != nil {
				t.Fatalf("Decrypt returned error: %v", err)
			}
			if got != plaintext {
				t.Fatalf("round trip mismatch: expected %q, got %q", plaintext, got)
			}
		})
	}
}

func TestEncryptIsDeterministic(t *testing.T) {
	codec, err := New("unit-test-field-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	first := codec.Encrypt("09171234567")
	second := codec.Encrypt("09171234567")
	if first != second {
		t.Fatalf("expected identical ciphertexts for equal plaintexts, got %q and %q", first, second)
	}

	other := codec.Encrypt("09179999999")
	if other == first {
		t.Fatalf("distinct plaintexts produced identical ciphertext %q", first)
	}
}

func TestDecryptRejectsForeignInput(t *testing.T) {
	codec, err := New("unit-test-field-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "plaintext passed by mistake", input: "09171234567"},
		{name: "invalid base64", input: "!!not-base64!!"},
		{name: "too short", input: "QUJD"},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decrypt(tt.input); err != ErrMalformedCiphertext {
				t.Fatalf("expected ErrMalformedCiphertext, got %v", err)
			}
		})
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	codec, err := New("unit-test-field-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ciphertext := codec.Encrypt("09171234567")
	raw := []byte(ciphertext)
	raw[len(raw)-1] ^= 0x01

	if _, err := codec.Decrypt(string(raw)); err == nil {
		t.Fatal("expected tampered ciphertext to be rejected")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	codec, err := New("unit-test-field-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	other, err := New("a-different-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := other.Decrypt(codec.Encrypt("09171234567")); err != ErrMalformedCiphertext {
		t.Fatalf("expected ErrMalformedCiphertext under wrong key, got %v", err)
	}
}

func TestNewRejectsEmptyKey(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Fatal("expected error for empty key")
	}
}
