package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Credential is the persisted token state.
type Credential struct {
	Token   string    `json:"token"`
	BaseURL string    `json:"base_url,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// TokenStore abstracts persistence for the credential.
type TokenStore interface {
	Load() (Credential, error)
	Save(Credential) error
	Clear() error
}

// FileTokenStore writes the credential to a JSON file readable only by the
// owner. Writers hold an exclusive lock on a sibling ".lock" file.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore builds a FileTokenStore at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string { return s.path }

// Load reads the credential. A missing file resolves to an empty credential.
func (s *FileTokenStore) Load() (Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credential{}, nil
		}
		return Credential{}, fmt.Errorf("read token file: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Credential{}, nil
	}
	// A bare token (not JSON) is accepted so the file can be written by hand.
	if !strings.HasPrefix(trimmed, "{") {
		return Credential{Token: trimmed}, nil
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("decode token file: %w", err)
	}
	cred.Token = strings.TrimSpace(cred.Token)
	return cred, nil
}

// Save persists the credential with 0600 permissions.
func (s *FileTokenStore) Save(cred Credential) error {
	if strings.TrimSpace(cred.Token) == "" {
		return errors.New("token is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure token directory: %w", err)
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	return s.withLock(func() error {
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return fmt.Errorf("write token file: %w", err)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("replace token file: %w", err)
		}
		return nil
	})
}

// Clear removes the token file. A missing file is not an error.
func (s *FileTokenStore) Clear() error {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return s.withLock(func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	})
}

func (s *FileTokenStore) withLock(fn func() error) error {
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}
