// Package session persists the bot's durable state: the platform session
// artifact (serialized cookies) and the set of already-handled post IDs.
// Both are plain JSON files, read fully at startup and rewritten fully on
// each update.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

const artifactFileMode = 0o600

// ErrNoArtifact reports that no stored session artifact exists.
var ErrNoArtifact = errors.New("no stored session artifact")

// Store persists the session artifact to a single file.
type Store struct {
	path string
}

// NewStore creates a session store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "cookies.json")}
}

// Save writes the session artifact, capturing rotated tokens. Called after
// every successful login and after every publish.
func (s *Store) Save(cookies []*http.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session artifact: %w", err)
	}
	if err := os.WriteFile(s.path, data, artifactFileMode); err != nil {
		return fmt.Errorf("write session artifact: %w", err)
	}
	return nil
}

// Load reads the stored session artifact. Returns ErrNoArtifact when the
// file is missing; an unparseable file is reported as an ordinary error and
// callers treat it the same way (skip to credential login).
func (s *Store) Load() ([]*http.Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("read session artifact: %w", err)
	}
	var cookies []*http.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("decode session artifact: %w", err)
	}
	if len(cookies) == 0 {
		return nil, ErrNoArtifact
	}
	return cookies, nil
}

// Clear deletes the stored artifact. Called when the platform rejects it.
// Idempotent: clearing a missing artifact is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session artifact: %w", err)
	}
	return nil
}
