// Package credstore persists the single refresh credential of a deployment.
//
// A Store encodes the credential as JSON, optionally sealed with a
// crypt.Encryptor, and hands the bytes to a Backend (file, redis, postgres or
// object storage). Each Save replaces the record in one write.
package credstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shandysiswandi/mailrelay/internal/pkg/crypt"
)

// Record encodings.
const (
	EncodingPlaintext = "plaintext"
	EncodingEncrypted = "encrypted"
)

var (
	// ErrNotFound is returned by Load when no usable credential is stored.
	ErrNotFound = errors.New("credstore: credential not found")
	// ErrEmptyCredential is returned by Save for an empty credential.
	ErrEmptyCredential = errors.New("credstore: empty credential")
	// ErrEncodingMismatch indicates a record written in the other encoding.
	ErrEncodingMismatch = errors.New("credstore: record encoding mismatch")
)

// Backend reads and writes the raw record.
type Backend interface {
	// Read returns the record or an error wrapping ErrNotFound when none exists.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the record atomically.
	Write(ctx context.Context, data []byte) error
	// Name identifies the backend in logs.
	Name() string
}

type encryptedData struct {
	IV             string `json:"iv"`
	EncryptedToken string `json:"encryptedToken"`
}

type record struct {
	RefreshToken  string         `json:"refreshToken,omitempty"`
	EncryptedData *encryptedData `json:"encryptedData,omitempty"`
}

// Store loads and saves the refresh credential.
type Store struct {
	backend Backend
	enc     crypt.Encryptor
}

// New returns a Store over backend. A nil enc stores the credential in plaintext.
func New(backend Backend, enc crypt.Encryptor) *Store {
	return &Store{backend: backend, enc: enc}
}

// Encoding reports the record encoding this store reads and writes.
func (s *Store) Encoding() string {
	if s.enc != nil {
		return EncodingEncrypted
	}
	return EncodingPlaintext
}

// Backend returns the backend name.
func (s *Store) Backend() string {
	return s.backend.Name()
}

// Load returns the stored credential.
//
// Any failure, including a missing, malformed or undecryptable record,
// satisfies errors.Is(err, ErrNotFound) and also wraps the cause.
func (s *Store) Load(ctx context.Context) (string, error) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		return "", notFound(err)
	}

	cred, err := s.decode(data)
	if err != nil {
		return "", notFound(err)
	}

	return cred, nil
}

// Save replaces the stored credential.
func (s *Store) Save(ctx context.Context, cred string) error {
	if cred == "" {
		return ErrEmptyCredential
	}

	data, err := s.encode(cred)
	if err != nil {
		return err
	}

	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("credstore: %s write: %w", s.backend.Name(), err)
	}
	return nil
}

func (s *Store) encode(cred string) ([]byte, error) {
	rec := record{RefreshToken: cred}
	if s.enc != nil {
		sealed, err := s.enc.Encrypt(cred)
		if err != nil {
			return nil, fmt.Errorf("credstore: encrypt: %w", err)
		}
		rec = record{EncryptedData: &encryptedData{
			IV:             hex.EncodeToString(sealed.IV),
			EncryptedToken: hex.EncodeToString(sealed.Ciphertext),
		}}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("credstore: encode: %w", err)
	}
	return data, nil
}

func (s *Store) decode(data []byte) (string, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("credstore: decode: %w", err)
	}

	if s.enc == nil {
		if rec.EncryptedData != nil {
			return "", fmt.Errorf("%w: found encrypted, want plaintext", ErrEncodingMismatch)
		}
		if rec.RefreshToken == "" {
			return "", ErrEmptyCredential
		}
		return rec.RefreshToken, nil
	}

	if rec.EncryptedData == nil {
		return "", fmt.Errorf("%w: found plaintext, want encrypted", ErrEncodingMismatch)
	}

	iv, err := hex.DecodeString(rec.EncryptedData.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv is not hex", crypt.ErrDecrypt)
	}
	ciphertext, err := hex.DecodeString(rec.EncryptedData.EncryptedToken)
	if err != nil {
		return "", fmt.Errorf("%w: token is not hex", crypt.ErrDecrypt)
	}

	cred, err := s.enc.Decrypt(crypt.Sealed{IV: iv, Ciphertext: ciphertext})
	if err != nil {
		return "", err
	}
	if cred == "" {
		return "", ErrEmptyCredential
	}
	return cred, nil
}

func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}
