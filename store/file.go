package store

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// File stores each record in its own file under a directory. Writes go to a
// temporary file that is renamed over the target, so a crash mid-write leaves
// the previous record intact.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates a file store rooted at dir, creating the directory if needed
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, ErrInvalidConfig("file.dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, ErrConnection(err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, ErrRead(key, err)
	}
	return string(data), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".record-*")
	if err != nil {
		return ErrWrite(key, err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return ErrWrite(key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return ErrWrite(key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		os.Remove(tmp.Name())
		return ErrWrite(key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ErrWrite(key, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
