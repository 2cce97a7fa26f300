// Package localstore is the client's durable key-value store.
//
// It plays the part a browser's local storage plays for a web client: a
// handful of string values (the session id, its push key, the theme) that
// must survive restarts. Values live in a TOML file, by default
// ~/.local/share/adindex/store.toml. Every Set and Delete is written through
// immediately.
package localstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Well-known keys.
const (
	KeySessionID = "session_id"
	KeyVapidPub  = "vapid_pub"
	KeyTheme     = "theme"
)

const defaultStorePath = "~/.local/share/adindex/store.toml"

// Store is a file-backed string map.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// DefaultPath returns the default store file path.
func DefaultPath() string {
	return defaultStorePath
}

// Open reads the store at path. A missing, unreadable or corrupt file yields
// an empty store; the next write replaces it.
func Open(path string) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	s := &Store{path: resolved, values: map[string]string{}}

	file, err := os.Open(resolved)
	if err != nil {
		// Missing and unreadable files both degrade to an empty store.
		return s, nil
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return s, nil // Graceful degradation
	}

	var raw map[string]string
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return s, nil // Graceful degradation
	}
	for k, v := range raw {
		if strings.TrimSpace(v) != "" {
			s.values[k] = v
		}
	}
	return s, nil
}

// Path returns the resolved file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and persists the store.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.saveLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and persists the store.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.saveLocked(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// Save rewrites the file from memory, replacing a corrupt or missing file
// that Open degraded to an empty store.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	bytes, err := toml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultStorePath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
