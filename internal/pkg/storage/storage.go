// Package storage reads and writes small objects in S3, MinIO or Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Get when the object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStore defines the object operations used by this service.
type ObjectStore interface {
	io.Closer

	// Put replaces the object with data in a single upload.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	// Get returns the whole object.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}
