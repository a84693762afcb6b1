// Package filestore implements session.PersistentStore on a single YAML file. Every
// write replaces the file atomically by writing a sibling temporary file and renaming
// it over the original, so readers never observe a half-written record.
package filestore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pubsync/pubsync/internal/common/apperrors"
	"github.com/pubsync/pubsync/internal/sync/session"
	"gopkg.in/yaml.v3"
)

// Store is a YAML-file backed key-value store.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store persisting to path. The file and its directory are created on
// first write.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, apperrors.ErrClientValidation.New("file path cannot be empty")
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetAll(ctx, map[string]string{key: value})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.RemoveAll(ctx, key)
}

// SetAll writes all values in one atomic file replacement.
func (s *Store) SetAll(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return s.write(current)
}

// RemoveAll deletes all keys in one atomic file replacement.
func (s *Store) RemoveAll(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	return s.write(current)
}

func (s *Store) read() (map[string]string, error) {
	values := make(map[string]string)
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, apperrors.ErrUnknown.MsgErr("unable to read store file", err)
	}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, apperrors.ErrUnknown.MsgErr("unable to parse store file", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return apperrors.ErrUnknown.MsgErr("unable to create store directory", err)
	}
	b, err := yaml.Marshal(values)
	if err != nil {
		return apperrors.ErrUnknown.MsgErr("unable to encode store", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return apperrors.ErrUnknown.MsgErr("unable to write store file", err)
	}
	if err := os.Rename(tmp, s.path); err == nil {
		return nil
	}

	defer os.Remove(tmp)
	if runtime.GOOS == "windows" {
		_ = os.Remove(s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.ErrUnknown.MsgErr("unable to replace store file", err)
	}
	return nil
}

var _ session.RecordStore = (*Store)(nil)
