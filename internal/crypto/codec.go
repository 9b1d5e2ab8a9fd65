// Package crypto provides the field-level codec for sensitive transaction
// columns (amount, description). Decryption failures are reported as errors
// so callers can treat the field as unreadable and skip it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// Codec encrypts and decrypts individual field values.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// AESGCM is a Codec using AES-256-GCM with a random nonce prepended to the
// ciphertext, base64-encoded for storage in text columns.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM builds a codec from a hex-encoded 32-byte key.
func NewAESGCM(keyHex string) (*AESGCM, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

func (c *AESGCM) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESGCM) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}

// Plaintext is a passthrough Codec for deployments without field encryption.
type Plaintext struct{}

func (Plaintext) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (Plaintext) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
