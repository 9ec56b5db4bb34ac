package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// HandledSet is the durable set of post IDs that must never be re-processed.
// Append-only, loaded fully into memory at startup, rewritten to disk
// synchronously on every insertion. Unbounded growth is accepted.
type HandledSet struct {
	mu   sync.RWMutex
	ids  map[string]struct{}
	path string
}

// LoadHandledSet loads (or initializes) the handled-ID set under dataDir.
func LoadHandledSet(dataDir string) (*HandledSet, error) {
	h := &HandledSet{
		ids:  make(map[string]struct{}),
		path: filepath.Join(dataDir, "handled.json"),
	}

	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return h, nil
		}
		return nil, fmt.Errorf("read handled set: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode handled set: %w", err)
	}
	for _, id := range ids {
		h.ids[id] = struct{}{}
	}
	return h, nil
}

// Contains reports whether a post ID has already been handled.
func (h *HandledSet) Contains(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.ids[id]
	return ok
}

// Add inserts a post ID and persists the whole set before returning.
func (h *HandledSet) Add(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.ids[id]; ok {
		return nil
	}
	h.ids[id] = struct{}{}
	return h.save()
}

// Len returns the number of handled IDs.
func (h *HandledSet) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ids)
}

// save writes the set as a JSON array. Caller holds the lock.
func (h *HandledSet) save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ids := make([]string, 0, len(h.ids))
	for id := range h.ids {
		ids = append(ids, id)
	}

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handled set: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("write handled set: %w", err)
	}
	return nil
}
