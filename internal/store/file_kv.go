package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// fileDocument is the on-disk format for FileKV.
type fileDocument struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// FileKV implements KV backed by a single JSON file. Writes go through a
// temp file and atomic rename so a crash mid-write never leaves a torn
// document. All access is serialized through one mutex.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// NewFileKV creates a file-backed store at path, creating the parent
// directory and an empty document if needed.
func NewFileKV(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	kv := &FileKV{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := kv.save(&fileDocument{Version: 1, Values: make(map[string]string)}); err != nil {
			return nil, err
		}
	}

	log.Debug().Str("path", path).Msg("file store initialized")

	return kv, nil
}

func (f *FileKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", err
	}

	value, ok := doc.Values[key]
	if !ok {
		return "", ErrKeyNotFound
	}

	return value, nil
}

func (f *FileKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	doc.Values[key] = value
	return f.save(doc)
}

func (f *FileKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	delete(doc.Values, key)
	return f.save(doc)
}

func (f *FileKV) Enumerate(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(doc.Values))
	for key := range doc.Values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (f *FileKV) Close() error {
	return nil
}

func (f *FileKV) load() (*fileDocument, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}

	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}

	return &doc, nil
}

func (f *FileKV) save(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store file: %w", err)
	}

	// Write to temp file first, then atomic rename
	tempPath := f.path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return nil
}
