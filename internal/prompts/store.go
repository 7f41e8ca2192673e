package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// validKeyPattern matches valid prompt keys (alphanumeric with dots, underscores).
var validKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._]*$`)

const overrideExt = ".tmpl"

// Store reads prompt overrides from a directory of <key>.tmpl files.
type Store struct {
	dir string
}

// NewStore creates a new override store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the override directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the override text for key, or ok=false when none exists.
func (s *Store) Get(key string) (text string, ok bool, err error) {
	if !validKeyPattern.MatchString(key) {
		return "", false, fmt.Errorf("invalid prompt key: %s", key)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key+overrideExt))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read prompt override %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes an override for key.
func (s *Store) Set(key, text string) error {
	if !validKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid prompt key: %s", key)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create prompt directory: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, key+overrideExt), []byte(text), 0o644)
}

// Clear removes the override for key. Missing overrides are not an error.
func (s *Store) Clear(key string) error {
	if !validKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid prompt key: %s", key)
	}
	err := os.Remove(filepath.Join(s.dir, key+overrideExt))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the keys that currently have overrides, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, overrideExt) {
			continue
		}
		key := strings.TrimSuffix(name, overrideExt)
		if validKeyPattern.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
