package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Method is the persisted authentication mode flag.
type Method string

const (
	MethodNone      Method = ""
	MethodExtension Method = "extension"
	MethodManualKey Method = "manual"
)

// Identity is what survives a restart. PrivateKey is set in manual-key mode
// only and is stored in plaintext; the file is the moral equivalent of the
// browser's localStorage and carries the same documented risk.
type Identity struct {
	Method     Method `json:"method"`
	PubKey     string `json:"pubkey,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
}

// Store persists the active identity.
type Store interface {
	Load() (Identity, error)
	Save(Identity) error
	Clear() error
}

// FileStore keeps the identity as a JSON file with owner-only permissions.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Load() (Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, nil
		}
		return Identity{}, fmt.Errorf("identity store: read %s: %w", s.path, err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("identity store: parse %s: %w", s.path, err)
	}
	return id, nil
}

func (s *FileStore) Save(id Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("identity store: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("identity store: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("identity store: write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("identity store: remove %s: %w", s.path, err)
	}
	return nil
}
