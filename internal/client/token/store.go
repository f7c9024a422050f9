// Package token owns the client's access/refresh token pair: durable
// storage, expiry checks against the JWT exp claim, and the deduplicated
// refresh flow.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuthTokens is the persisted token pair. StoredAt is internal bookkeeping
// and never leaves the store.
type AuthTokens struct {
	Access   string    `json:"access"`
	Refresh  string    `json:"refresh"`
	StoredAt time.Time `json:"stored_at"`
}

// Store persists the token pair as a JSON blob at a fixed path with owner-only
// permissions.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the token file in the user's home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mrs_tokens.json"
	}
	return filepath.Join(home, ".mrs_tokens.json")
}

// Save writes the pair, stamping StoredAt. A rejected write (permissions,
// quota) surfaces as an error to the caller.
func (s *Store) Save(t AuthTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.StoredAt = time.Now().UTC()
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0600); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}
	return nil
}

// Load returns the stored pair. ok is false when nothing is stored.
func (s *Store) Load() (t AuthTokens, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AuthTokens{}, false, nil
		}
		return AuthTokens{}, false, fmt.Errorf("load tokens: %w", err)
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return AuthTokens{}, false, fmt.Errorf("load tokens: %w", err)
	}
	return t, t.Access != "" || t.Refresh != "", nil
}

// Clear removes the stored pair. Missing state is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}
