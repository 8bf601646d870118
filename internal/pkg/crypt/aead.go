package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"
)

// gcmIVSize matches the 16-byte IV of the stored credential format.
const gcmIVSize = 16

type aeadEncryptor struct {
	aead      cipher.AEAD
	algorithm string
	rand      io.Reader
}

func newAESGCM(key []byte) (*aeadEncryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: aes init failed: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return nil, fmt.Errorf("crypt: gcm init failed: %w", err)
	}

	return &aeadEncryptor{aead: gcm, algorithm: AlgorithmAESGCM, rand: rand.Reader}, nil
}

func newChaCha20Poly1305(key []byte) (*aeadEncryptor, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: chacha20-poly1305 init failed: %w", err)
	}

	return &aeadEncryptor{aead: aead, algorithm: AlgorithmChaCha20Poly1305, rand: rand.Reader}, nil
}

func (e *aeadEncryptor) Algorithm() string {
	return e.algorithm
}

// Encrypt seals plaintext under a fresh random IV. The algorithm name is bound as AAD.
func (e *aeadEncryptor) Encrypt(plaintext string) (Sealed, error) {
	iv := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(e.rand, iv); err != nil {
		return Sealed{}, fmt.Errorf("crypt: iv generation failed: %w", err)
	}

	return Sealed{
		IV:         iv,
		Ciphertext: e.aead.Seal(nil, iv, []byte(plaintext), []byte(e.algorithm)),
	}, nil
}

// Decrypt opens sealed. Every failure is reported as ErrDecrypt.
func (e *aeadEncryptor) Decrypt(sealed Sealed) (string, error) {
	if len(sealed.IV) != e.aead.NonceSize() {
		return "", fmt.Errorf("%w: iv must be %d bytes", ErrDecrypt, e.aead.NonceSize())
	}

	plain, err := e.aead.Open(nil, sealed.IV, sealed.Ciphertext, []byte(e.algorithm))
	if err != nil {
		return "", ErrDecrypt
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not utf-8", ErrDecrypt)
	}

	return string(plain), nil
}
