// Package types defines core types shared across the mention-bot runtime.
package types

import "time"

// TrackedPost is a post the bot has picked up and is shepherding through the
// hand-off: discovered by the poller, exposed to the external responder over
// HTTP, and eventually answered and marked handled.
type TrackedPost struct {
	ID             string    `json:"id"`
	AuthorHandle   string    `json:"author_handle"`
	AuthorID       string    `json:"author_id,omitempty"`
	Text           string    `json:"text"`
	DiscoveredAt   time.Time `json:"discovered_at"`
	Handled        bool      `json:"handled"`
	Reply          string    `json:"reply,omitempty"`
	OptimizedReply string    `json:"optimized_reply,omitempty"`
	DMSent         bool      `json:"dm_sent,omitempty"`
}

// ActivityKind labels entries in the activity log.
type ActivityKind string

const (
	ActivityDiscovered  ActivityKind = "discovered"
	ActivityReply       ActivityKind = "reply_received"
	ActivityTimeout     ActivityKind = "reply_timeout"
	ActivityPublished   ActivityKind = "published"
	ActivityDM          ActivityKind = "dm_sent"
	ActivityReauth      ActivityKind = "reauthenticated"
	ActivityCrawledPage ActivityKind = "crawled_page"
)

// Activity is one record in the bot's append-only activity feed.
type Activity struct {
	Timestamp time.Time    `json:"timestamp"`
	Kind      ActivityKind `json:"kind"`
	PostID    string       `json:"post_id,omitempty"`
	Author    string       `json:"author,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

// DocChunk is one stored chunk of a crawled documentation page.
type DocChunk struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	ChunkNumber int            `json:"chunk_number"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Embedding   []float32      `json:"embedding,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
