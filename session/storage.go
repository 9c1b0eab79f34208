package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// stateFileName is the path of the persisted session relative to the XDG
// state directory.
const stateFileName = "go-article-sync/session.json"

type persistedState struct {
	Token   string   `json:"token"`
	Profile *Profile `json:"user,omitempty"`
}

// FileStore persists the session as a JSON file in durable client-side
// storage.
type FileStore struct {
	path string
}

// NewFileStore resolves the default XDG state location for the session file.
func NewFileStore() (*FileStore, error) {
	path, err := xdg.StateFile(stateFileName)
	if err != nil {
		return nil, fmt.Errorf("resolving session state path: %w", err)
	}
	return &FileStore{path: path}, nil
}

// NewFileStoreAt uses an explicit path, mainly for tests.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the persisted session. A missing file is an empty session, not
// an error.
func (f *FileStore) Load() (string, *Profile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("reading session state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return "", nil, fmt.Errorf("decoding session state: %w", err)
	}
	return state.Token, state.Profile, nil
}

// Save writes the session to disk, creating the directory if needed.
func (f *FileStore) Save(token string, profile *Profile) error {
	data, err := json.Marshal(persistedState{Token: token, Profile: profile})
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session state dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing an absent file is fine.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session state: %w", err)
	}
	return nil
}
