package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no session token has been stored.
var ErrNoToken = errors.New("no session token stored")

// FileStore keeps the API session token in a JSON file readable only by the user.
type FileStore struct {
	path string

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewFileStore returns a store backed by path. The file is created on the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the token is stored in.
func (s *FileStore) Path() string {
	return s.path
}

// Token returns the stored token, or ErrNoToken.
func (s *FileStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached, nil
	}
	tok, err := LoadToken(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read session token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrNoToken
	}
	s.cached = tok
	return tok, nil
}

// SaveToken writes the token to disk, replacing any previous one.
func (s *FileStore) SaveToken(token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := SaveToken(s.path, token); err != nil {
		return err
	}
	s.cached = token
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session token: %w", err)
	}
	return nil
}

// SaveToken saves a token to a file path with 0600 permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// LoadToken retrieves a token from a local file.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
