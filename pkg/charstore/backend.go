package charstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is a record returned by List.
type Entry struct {
	Key  string
	Data []byte
}

// Backend provides key-value access to record files.
type Backend interface {
	Read(ctx context.Context, path string) ([]byte, bool, error)
	Write(ctx context.Context, path string, data []byte) error
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// FileBackend stores records as files under a directory.
type FileBackend struct {
	Dir string
}

func (b *FileBackend) resolve(path string) string {
	return filepath.Join(b.Dir, filepath.FromSlash(path))
}

func (b *FileBackend) Read(_ context.Context, path string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Write replaces the file atomically and keeps a .bak copy of the new content.
func (b *FileBackend) Write(_ context.Context, path string, data []byte) error {
	target := b.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		return err
	}
	_ = os.WriteFile(target+".bak", data, 0o644)
	return nil
}

// List returns every .json record directly under prefix.
func (b *FileBackend) List(_ context.Context, prefix string) ([]Entry, error) {
	dir := b.resolve(prefix)
	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), recordExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: strings.TrimSuffix(prefix, "/") + "/" + file.Name(), Data: data})
	}
	return entries, nil
}
