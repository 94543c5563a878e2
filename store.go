package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var _ Store = &FileStore{}

// identitySnapshot is the on-disk layout of the cached identity.
type identitySnapshot struct {
	Identity *Identity `json:"identity"`
	SavedAt  time.Time `json:"saved_at"`
}

// FileStore keeps the identity snapshot in a single JSON file. Writes
// go through a temp file and rename so a crash never leaves a torn
// snapshot behind.
type FileStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// FileStoreOption customizes FileStore construction.
type FileStoreOption func(*FileStore)

// WithFileStoreClock injects a custom clock (useful for tests).
func WithFileStoreClock(clock func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewFileStore returns a FileStore persisting to path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{path: path, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load reads the cached identity. A missing file means no snapshot and
// returns (nil, nil).
func (s *FileStore) Load(_ context.Context) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snap identitySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return snap.Identity, nil
}

// Save replaces the snapshot with identity.
func (s *FileStore) Save(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(identitySnapshot{
		Identity: identity,
		SavedAt:  s.now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the snapshot. Clearing an absent snapshot is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
