// Package crypt seals short secrets with an authenticated cipher.
//
// The sealed form keeps the IV next to the ciphertext so callers can persist
// both as hex. Keys are derived from a configured secret with Argon2id.
package crypt

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Supported algorithm identifiers.
const (
	AlgorithmAESGCM           = "aes-256-gcm"
	AlgorithmChaCha20Poly1305 = "chacha20-poly1305"
)

// KeySize is the length of every derived key.
const KeySize = 32

var (
	// ErrDecrypt is returned for any failure to open a sealed value.
	ErrDecrypt = errors.New("crypt: decrypt failed")
	// ErrUnsupportedAlgorithm indicates an unknown algorithm identifier.
	ErrUnsupportedAlgorithm = errors.New("crypt: unsupported algorithm")
	// ErrKeySize indicates a key that is not KeySize bytes.
	ErrKeySize = errors.New("crypt: invalid key size")
	// ErrEmptySecret indicates a missing secret for key derivation.
	ErrEmptySecret = errors.New("crypt: empty secret")
)

// Sealed is an encrypted value together with the IV used to produce it.
type Sealed struct {
	IV         []byte
	Ciphertext []byte
}

// Encryptor seals and opens string values.
type Encryptor interface {
	Encrypt(plaintext string) (Sealed, error)
	Decrypt(sealed Sealed) (string, error)
	Algorithm() string
}

// New returns an Encryptor for algorithm. An empty algorithm selects AES-256-GCM.
func New(algorithm string, key []byte) (Encryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeySize, len(key), KeySize)
	}

	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmAESGCM:
		return newAESGCM(key)
	case AlgorithmChaCha20Poly1305:
		return newChaCha20Poly1305(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// DeriveKey stretches secret into a KeySize key with Argon2id.
func DeriveKey(secret, salt string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return argon2.IDKey([]byte(secret), []byte(salt), 1, 64*1024, 4, KeySize), nil
}
