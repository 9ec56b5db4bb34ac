// Package watch implements the monitoring side of the bot: the hand-off
// store bridging the poller and the HTTP facade, the search poller, and the
// fixed-interval main cycle.
package watch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pvaldes/mention-bot/pkg/types"
)

var (
	// ErrSlotOccupied reports that a tracked post is already active.
	ErrSlotOccupied = errors.New("active slot occupied")
	// ErrUnknownPost reports a reply submission for an untracked post ID.
	ErrUnknownPost = errors.New("unknown post id")
)

// record pairs a tracked post with its reply-arrival signal.
type record struct {
	post    types.TrackedPost
	replied chan struct{}
}

// Store holds tracked posts and the single active hand-off slot. All access
// is serialized by the mutex: the cycle goroutine and the HTTP facade
// handlers touch it concurrently.
type Store struct {
	mu       sync.Mutex
	records  map[string]*record
	activeID string
}

// NewStore creates an empty hand-off store.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Track inserts a post and occupies the active slot. At most one post may
// be active at a time.
func (s *Store) Track(post types.TrackedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" {
		return ErrSlotOccupied
	}
	s.records[post.ID] = &record{post: post, replied: make(chan struct{})}
	s.activeID = post.ID
	return nil
}

// Active returns a copy of the post in the active slot, if any.
func (s *Store) Active() (types.TrackedPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return types.TrackedPost{}, false
	}
	return s.records[s.activeID].post, true
}

// Get returns a copy of a tracked post.
func (s *Store) Get(id string) (types.TrackedPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return types.TrackedPost{}, false
	}
	return rec.post, true
}

// All returns copies of every tracked post, newest first.
func (s *Store) All() []types.TrackedPost {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]types.TrackedPost, 0, len(s.records))
	for _, rec := range s.records {
		posts = append(posts, rec.post)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].DiscoveredAt.After(posts[j].DiscoveredAt)
	})
	return posts
}

// SubmitReply attaches an externally generated reply to a tracked post and
// wakes the waiting cycle. A reply arriving after the wait budget expired
// is still stored and remains visible to the inspection endpoints.
func (s *Store) SubmitReply(id, reply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrUnknownPost
	}

	first := rec.post.Reply == ""
	rec.post.Reply = reply
	if first {
		close(rec.replied)
	}
	return nil
}

// AwaitReply blocks until a reply arrives for the post, the budget elapses,
// or ctx is cancelled. Returns the reply and true on arrival.
func (s *Store) AwaitReply(ctx context.Context, id string, budget time.Duration) (string, bool) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return "", false
	}
	if rec.post.Reply != "" {
		reply := rec.post.Reply
		s.mu.Unlock()
		return reply, true
	}
	replied := rec.replied
	s.mu.Unlock()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case <-replied:
		post, _ := s.Get(id)
		return post.Reply, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// SetOptimizedReply records the rewritten reply text.
func (s *Store) SetOptimizedReply(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.post.OptimizedReply = text
	}
}

// SetDMSent records that the private-message step succeeded.
func (s *Store) SetDMSent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.post.DMSent = true
	}
}

// MarkHandled flags a tracked post as fully processed.
func (s *Store) MarkHandled(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.post.Handled = true
	}
}

// ClearActive releases the active slot if the given post occupies it.
func (s *Store) ClearActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == id {
		s.activeID = ""
	}
}

// Stats summarizes the store for the status endpoint.
type Stats struct {
	Total      int
	Handled    int
	ActiveID   string
	SlotActive bool
}

// Snapshot returns current counts.
func (s *Store) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.records), ActiveID: s.activeID, SlotActive: s.activeID != ""}
	for _, rec := range s.records {
		if rec.post.Handled {
			st.Handled++
		}
	}
	return st
}
