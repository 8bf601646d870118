package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shandysiswandi/mailrelay/internal/pkg/crypt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	data     []byte
	readErr  error
	writeErr error
}

func (m *memoryBackend) Name() string { return "memory" }

func (m *memoryBackend) Read(context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.data == nil {
		return nil, ErrNotFound
	}
	return m.data, nil
}

func (m *memoryBackend) Write(_ context.Context, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = data
	return nil
}

func newEncryptor(t *testing.T, secret string) crypt.Encryptor {
	t.Helper()

	key, err := crypt.DeriveKey(secret, "salt")
	require.NoError(t, err)
	enc, err := crypt.New(crypt.AlgorithmAESGCM, key)
	require.NoError(t, err)
	return enc
}

func TestStore_Plaintext(t *testing.T) {
	// Arrange
	backend := &memoryBackend{}
	store := New(backend, nil)

	// Act
	err := store.Save(context.Background(), "1//refresh")
	require.NoError(t, err)
	got, err := store.Load(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1//refresh", got)
	assert.Equal(t, EncodingPlaintext, store.Encoding())
	assert.Equal(t, "memory", store.Backend())
	assert.JSONEq(t, `{"refreshToken":"1//refresh"}`, string(backend.data))
}

func TestStore_Encrypted(t *testing.T) {
	// Arrange
	backend := &memoryBackend{}
	store := New(backend, newEncryptor(t, "s3cret"))

	// Act
	require.NoError(t, store.Save(context.Background(), "1//refresh"))
	got, err := store.Load(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1//refresh", got)
	assert.Equal(t, EncodingEncrypted, store.Encoding())
	assert.NotContains(t, string(backend.data), "1//refresh")

	var rec struct {
		EncryptedData struct {
			IV             string `json:"iv"`
			EncryptedToken string `json:"encryptedToken"`
		} `json:"encryptedData"`
	}
	require.NoError(t, json.Unmarshal(backend.data, &rec))
	assert.Len(t, rec.EncryptedData.IV, 32)
	assert.NotEmpty(t, rec.EncryptedData.EncryptedToken)
}

func TestStore_LoadFailures(t *testing.T) {
	encrypted := &memoryBackend{}
	require.NoError(t, New(encrypted, newEncryptor(t, "s3cret")).Save(context.Background(), "1//refresh"))

	tests := []struct {
		name      string
		backend   *memoryBackend
		enc       crypt.Encryptor
		wantCause error
	}{
		{name: "missing", backend: &memoryBackend{}},
		{name: "io error", backend: &memoryBackend{readErr: errors.New("disk gone")}},
		{name: "malformed json", backend: &memoryBackend{data: []byte(`{"refreshToken":`)}},
		{name: "empty plaintext", backend: &memoryBackend{data: []byte(`{"refreshToken":""}`)}, wantCause: ErrEmptyCredential},
		{name: "encrypted record, plaintext store", backend: encrypted, wantCause: ErrEncodingMismatch},
		{
			name: "plaintext record, encrypted store", backend: &memoryBackend{data: []byte(`{"refreshToken":"x"}`)},
			enc: newEncryptor(t, "s3cret"), wantCause: ErrEncodingMismatch,
		},
		{name: "wrong key", backend: encrypted, enc: newEncryptor(t, "other"), wantCause: crypt.ErrDecrypt},
		{
			name:    "iv not hex",
			backend: &memoryBackend{data: []byte(`{"encryptedData":{"iv":"zz","encryptedToken":"00"}}`)},
			enc:     newEncryptor(t, "s3cret"), wantCause: crypt.ErrDecrypt,
		},
		{
			name:    "short iv",
			backend: &memoryBackend{data: []byte(`{"encryptedData":{"iv":"00ff","encryptedToken":"00ff"}}`)},
			enc:     newEncryptor(t, "s3cret"), wantCause: crypt.ErrDecrypt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.backend, tt.enc).Load(context.Background())

			assert.Empty(t, got)
			require.ErrorIs(t, err, ErrNotFound)
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
		})
	}
}

func TestStore_Save(t *testing.T) {
	t.Run("empty credential", func(t *testing.T) {
		backend := &memoryBackend{}

		err := New(backend, nil).Save(context.Background(), "")

		assert.ErrorIs(t, err, ErrEmptyCredential)
		assert.Nil(t, backend.data)
	})

	t.Run("backend failure", func(t *testing.T) {
		cause := errors.New("read-only")

		err := New(&memoryBackend{writeErr: cause}, nil).Save(context.Background(), "x")

		assert.ErrorIs(t, err, cause)
		assert.ErrorContains(t, err, "memory write")
	})

	t.Run("new exchange supersedes", func(t *testing.T) {
		store := New(&memoryBackend{}, newEncryptor(t, "s3cret"))
		require.NoError(t, store.Save(context.Background(), "first"))
		require.NoError(t, store.Save(context.Background(), "second"))

		got, err := store.Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})
}
