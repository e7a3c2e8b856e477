package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileSnapshot struct {
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// File persists the whole key space as one JSON document and rewrites it on
// every mutation.
type File struct {
	mu     sync.RWMutex
	values map[string]string
	path   string
}

// NewFile opens (or creates on first write) dataDir/kv.json.
func NewFile(dataDir string) (*File, error) {
	f := &File{
		values: make(map[string]string),
		path:   filepath.Join(dataDir, "kv.json"),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}
	if snap.Values != nil {
		f.values = snap.Values
	}
	return nil
}

// flush must be called with f.mu held.
func (f *File) flush() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.Marshal(fileSnapshot{Values: f.values, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (f *File) Get(_ context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)
	if err := f.flush(); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}
