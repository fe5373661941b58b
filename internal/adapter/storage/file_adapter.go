package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rl1809/gomarket-cart/internal/port"
)

type fileRecord struct {
	Version int64  `json:"version"`
	Value   string `json:"value"`
}

// FileAdapter persists each key as a JSON file under dir. Writes go to a temp
// file that is renamed over the target, so readers never see a partial entry.
type FileAdapter struct {
	dir string
	mu  sync.Mutex
}

var _ port.KeyValueRepository = (*FileAdapter)(nil)

func NewFileAdapter(dir string) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileAdapter{dir: dir}, nil
}

func (f *FileAdapter) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileAdapter) Get(ctx context.Context, key string) (port.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, found, err := f.read(key)
	if err != nil || !found {
		return port.Entry{}, found, err
	}
	return port.Entry{Value: rec.Value, Version: rec.Version}, true, nil
}

func (f *FileAdapter) Set(ctx context.Context, key string, entry port.Entry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current, found, err := f.read(key)
	if err != nil && !errors.Is(err, port.ErrCorruptEntry) {
		return false, err
	}
	if found && current.Version >= entry.Version {
		return false, nil
	}

	data, err := json.Marshal(fileRecord{Version: entry.Version, Value: entry.Value})
	if err != nil {
		return false, fmt.Errorf("encode entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, ".kv-*")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write entry %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, fmt.Errorf("sync entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close entry %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return false, fmt.Errorf("replace entry %s: %w", key, err)
	}
	return true, nil
}

func (f *FileAdapter) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete entry %s: %w", key, err)
	}
	return nil
}

func (f *FileAdapter) read(key string) (fileRecord, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fileRecord{}, false, nil
	}
	if err != nil {
		return fileRecord{}, false, fmt.Errorf("read entry %s: %w", key, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fileRecord{}, false, fmt.Errorf("%w: %s: %v", port.ErrCorruptEntry, key, err)
	}
	return rec, true, nil
}
