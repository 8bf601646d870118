package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDriver(t *testing.T) {
	assert.True(t, IsDriver("s3"))
	assert.True(t, IsDriver(" MinIO "))
	assert.True(t, IsDriver("gcs"))
	assert.False(t, IsDriver("file"))
	assert.False(t, IsDriver(""))
}

func TestNewFromDriver(t *testing.T) {
	_, err := NewFromDriver(context.Background(), "azure", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	st, err := NewFromDriver(context.Background(), DriverMinIO, FactoryOptions{
		MinIO: MinIOOptions{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"},
	})
	require.NoError(t, err)
	assert.IsType(t, &MinIOAdapter{}, st)
	assert.NoError(t, st.Close())

	st, err = NewFromDriver(context.Background(), DriverS3, FactoryOptions{
		S3: S3Options{Endpoint: "http://localhost:4566", AccessKey: "test", SecretKey: "test", UsePathStyle: true},
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Adapter{}, st)
}
