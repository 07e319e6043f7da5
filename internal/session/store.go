package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// fileFormat is the on-disk session file: {"token": "<signed>"}.
type fileFormat struct {
	Token string `json:"token"`
}

// FileStore persists the CLI bearer token between invocations.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save writes token with owner-only permissions, replacing any previous session.
func (s *FileStore) Save(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("refusing to save empty token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.Marshal(fileFormat{Token: token})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store session file: %w", err)
	}
	return nil
}

// Load returns the stored token. A missing, unreadable or malformed file means no session.
func (s *FileStore) Load() (string, bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", false
	}
	if strings.TrimSpace(f.Token) == "" {
		return "", false
	}
	return f.Token, true
}

// Clear removes the session file. Clearing an absent session is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
