package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBackend keeps the record in a single file.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend returns a backend writing to path on fsys.
func NewFileBackend(fsys afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fsys, path: path}
}

func (f *FileBackend) Name() string {
	return "file"
}

func (f *FileBackend) Read(_ context.Context) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, f.path)
	}
	return data, err
}

// Write stores data in a temp file next to the target, syncs it, then renames it into place.
func (f *FileBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := afero.TempFile(f.fs, dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		_ = f.fs.Remove(tmpName)
		return err
	}
	if err := f.fs.Chmod(tmpName, 0o600); err != nil {
		_ = f.fs.Remove(tmpName)
		return err
	}

	if err := f.fs.Rename(tmpName, f.path); err != nil {
		_ = f.fs.Remove(tmpName)
		return err
	}
	return nil
}

func writeAndSync(file afero.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// OSFs returns the operating system filesystem.
func OSFs() afero.Fs {
	return afero.NewOsFs()
}

