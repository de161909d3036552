// Package sealed encrypts the persisted user record at rest.
package sealed

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sealer encrypts and decrypts record bytes.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Versioned prefix so a later key or algorithm change can tell old records apart.
const prefixV1 = "v1:"

var errUnknownVersion = errors.New("sealed record has an unknown version")

// AESGCM seals records with AES-256-GCM.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM builds a sealer from a 32-byte key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{aead: aead}, nil
}

// NewAESGCMFromPassphrase accepts a 64-character hex key as-is; any other
// non-empty string is hashed with SHA-256 into a key.
func NewAESGCMFromPassphrase(passphrase string) (*AESGCM, error) {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return nil, errors.New("encryption key is required")
	}
	if decoded, err := hex.DecodeString(passphrase); err == nil && len(decoded) == 32 {
		return NewAESGCM(decoded)
	}
	sum := sha256.Sum256([]byte(passphrase))
	return NewAESGCM(sum[:])
}

// Seal encrypts plaintext under a random nonce and returns "v1:" + base64(nonce||ciphertext).
func (s *AESGCM) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	buf := s.aead.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, len(prefixV1)+base64.StdEncoding.EncodedLen(len(buf)))
	copy(out, prefixV1)
	base64.StdEncoding.Encode(out[len(prefixV1):], buf)
	return out, nil
}

// Open reverses Seal.
func (s *AESGCM) Open(sealed []byte) ([]byte, error) {
	text := string(sealed)
	if !strings.HasPrefix(text, prefixV1) {
		return nil, errUnknownVersion
	}
	data, err := base64.StdEncoding.DecodeString(text[len(prefixV1):])
	if err != nil {
		return nil, fmt.Errorf("decode sealed record: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("sealed record too short")
	}
	pt, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed record: %w", err)
	}
	return pt, nil
}
