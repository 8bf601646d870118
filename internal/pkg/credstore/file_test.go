package credstore

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	// Arrange
	fsys := afero.NewMemMapFs()
	backend := NewFileBackend(fsys, "/data/refresh_token.json")

	// Act
	_, errMissing := backend.Read(context.Background())
	require.NoError(t, backend.Write(context.Background(), []byte(`{"refreshToken":"a"}`)))
	require.NoError(t, backend.Write(context.Background(), []byte(`{"refreshToken":"b"}`)))
	data, err := backend.Read(context.Background())

	// Assert
	assert.ErrorIs(t, errMissing, ErrNotFound)
	require.NoError(t, err)
	assert.JSONEq(t, `{"refreshToken":"b"}`, string(data))
	assert.Equal(t, "file", backend.Name())

	info, err := fsys.Stat("/data/refresh_token.json")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	entries, err := afero.ReadDir(fsys, "/data")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileBackend_ReadOnly(t *testing.T) {
	fsys := afero.NewReadOnlyFs(afero.NewMemMapFs())
	backend := NewFileBackend(fsys, "/data/refresh_token.json")

	err := backend.Write(context.Background(), []byte(`{}`))

	assert.Error(t, err)
}

func TestFileBackend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileBackend(afero.NewMemMapFs(), "/data/t.json").Write(ctx, []byte(`{}`))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_FileRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	enc := newEncryptor(t, "s3cret")

	require.NoError(t, New(NewFileBackend(fsys, "/data/t.json"), enc).Save(context.Background(), "1//refresh"))
	got, err := New(NewFileBackend(fsys, "/data/t.json"), enc).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1//refresh", got)
}
