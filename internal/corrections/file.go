package corrections

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps corrections in a JSON object on disk. Every read loads the
// whole file and every change rewrites it through a temp file and rename.
// Writers in different processes are serialized by a lock file next to it.
type FileStore struct {
	lock *flock.Flock
	path string
}

// NewFileStore creates a store backed by path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Lookup implements service.CorrectionStore.
func (s *FileStore) Lookup(_ context.Context, counterparty string) (string, bool, error) {
	entries, err := s.load()
	if err != nil {
		return "", false, err
	}
	category, ok := entries[counterparty]
	return category, ok, nil
}

// All implements service.CorrectionStore.
func (s *FileStore) All(_ context.Context) (map[string]string, error) {
	return s.load()
}

// Save implements service.CorrectionStore. The file is left untouched when
// the stored value already equals category.
func (s *FileStore) Save(ctx context.Context, counterparty, category string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create corrections directory: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock corrections file: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock corrections file %s", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if existing, ok := entries[counterparty]; ok && existing == category {
		return nil
	}
	entries[counterparty] = category

	return s.write(entries)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read corrections: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: corrections file %s: %w", common.ErrMalformedInput, s.path, err)
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode corrections: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".corrections-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp corrections file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write corrections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp corrections file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace corrections file: %w", err)
	}
	return nil
}
