/**
 * @description
 * This package implements the deterministic field codec used for PII columns
 * that double as lookup keys. A mobile number is stored encrypted at rest, yet
 * the resolver must match it with a plain equality predicate, so encryption of
 * a given plaintext must always yield the same ciphertext.
 *
 * The construction is AES-256-CTR with a synthetic IV derived from
 * HMAC-SHA256(ivKey, plaintext). Deriving the IV from the plaintext makes the
 * scheme deterministic and lets Decrypt authenticate its output: after
 * decrypting, the IV is recomputed from the recovered plaintext and compared
 * against the transmitted one, so a value that was never produced by Encrypt
 * is rejected instead of yielding garbage.
 *
 * Equal plaintexts producing equal ciphertexts is a deliberate, known-weak
 * compatibility property of this system, not an accident of this package.
 *
 * @dependencies
 * - crypto/aes, crypto/cipher, crypto/hmac, crypto/sha256: Standard Go crypto.
 */

package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformedCiphertext is returned by Decrypt when the input was not
// produced by Encrypt with the same key.
var ErrMalformedCiphertext = errors.New("fieldcrypt: malformed ciphertext")

// Codec performs deterministic encryption and decryption of field values.
type Codec struct {
	block cipher.Block
	ivKey []byte
}

// New creates a Codec from the configured key material. The encryption key
// and the IV-derivation key are both derived from the secret with distinct
// labels so neither can be recovered from the other.
func New(secret string) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("fieldcrypt: empty key")
	}

	encKey := sha256.Sum256([]byte("enc:" + secret))
	ivKey := sha256.Sum256([]byte("iv:" + secret))

	block, err := aes.NewCipher(encKey[:])
	if err != nil {
		return nil, err
	}
	return &Codec{block: block, ivKey: ivKey[:]}, nil
}

// Encrypt returns the deterministic ciphertext for plaintext, encoded as
// base64url. Encrypt(x) == Encrypt(x) for all x, enabling equality lookups
// against encrypted columns.
func (c *Codec) Encrypt(plaintext string) string {
	iv := c.deriveIV(plaintext)

	out := make([]byte, aes.BlockSize+len(plaintext))
	copy(out, iv)
	cipher.NewCTR(c.block, iv).XORKeyStream(out[aes.BlockSize:], []byte(plaintext))

	return base64.RawURLEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt. It returns ErrMalformedCiphertext when the input
// is not valid base64url, is too short, or fails the synthetic-IV check,
// which catches plaintext passed to Decrypt by mistake.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < aes.BlockSize {
		return "", ErrMalformedCiphertext
	}

	iv := raw[:aes.BlockSize]
	plain := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCTR(c.block, iv).XORKeyStream(plain, raw[aes.BlockSize:])

	if !hmac.Equal(iv, c.deriveIV(string(plain))) {
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}

func (c *Codec) deriveIV(plaintext string) []byte {
	mac := hmac.New(sha256.New, c.ivKey)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)[:aes.BlockSize]
}
