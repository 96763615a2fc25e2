// Package fieldcrypt seals individual PII columns (member DNI, email) before
// they reach durable storage. The store treats it as an opaque encrypt/decrypt
// service; key lifecycle lives outside this backend.
package fieldcrypt

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

type Cipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Noop passes values through untouched. Used when no FIELD_KEY is configured
// and by the in-memory store.
type Noop struct{}

func (Noop) Seal(plaintext string) (string, error) { return plaintext, nil }
func (Noop) Open(sealed string) (string, error)    { return sealed, nil }

type AEADCipher struct {
	key []byte
}

// NewAEAD builds an XChaCha20-Poly1305 cipher from a hex-encoded 32-byte key.
func NewAEAD(hexKey string) (*AEADCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("field key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("field key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &AEADCipher{key: key}, nil
}

func (c *AEADCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("sealed value is not valid base64: %w", err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("field decryption failed: %w", err)
	}
	return string(plaintext), nil
}
