package localfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps the vision provider credential in a single local file so it
// survives restarts. The file is written with owner-only permissions.
type Store struct {
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		path = "./data/openai_api_key"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Get() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *Store) Set(credential string) error {
	if err := os.WriteFile(s.path, []byte(credential), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

func (s *Store) IsSet() bool {
	credential, err := s.Get()
	return err == nil && credential != ""
}
