package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/shandysiswandi/mailrelay/internal/pkg/storage"
)

// ObjectBackend keeps the record as one object in a bucket.
type ObjectBackend struct {
	store  storage.ObjectStore
	driver string
	bucket string
	key    string
}

// NewObjectBackend returns a backend storing the record at bucket/key.
func NewObjectBackend(store storage.ObjectStore, driver, bucket, key string) *ObjectBackend {
	return &ObjectBackend{store: store, driver: driver, bucket: bucket, key: key}
}

func (o *ObjectBackend) Name() string {
	return o.driver
}

func (o *ObjectBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := o.store.Get(ctx, o.bucket, o.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, o.bucket, o.key)
	}
	return data, err
}

func (o *ObjectBackend) Write(ctx context.Context, data []byte) error {
	return o.store.Put(ctx, o.bucket, o.key, data, "application/json")
}
