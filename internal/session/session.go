// Package session persists the logged-in user's token between CLI runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Session is the persisted login state.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Store reads and writes a Session as JSON at Path.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a Store for path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// DefaultPath is ~/.niucard/session.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".niucard", "session.json")
	}
	return filepath.Join(home, ".niucard", "session.json")
}

// Load returns the stored session; a missing file yields an empty Session.
func (s *Store) Load() (Session, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("failed to parse session %s: %w", s.path, err)
	}
	return sess, nil
}

// Token returns the stored token, or "" when logged out or unreadable.
func (s *Store) Token() string {
	sess, err := s.Load()
	if err != nil {
		return ""
	}
	return sess.Token
}

// Save writes sess with owner-only permissions.
func (s *Store) Save(sess Session) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *Store) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
