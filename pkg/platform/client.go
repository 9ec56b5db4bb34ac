// Package platform abstracts the social platform client so the rest of the
// bot can be exercised against a fake. The real implementation wraps the
// twitter-scraper library, which does the heavy lifting of session emulation
// and the platform API shape.
package platform

import (
	"context"
	"net/http"
	"time"
)

// SearchMode selects the result ordering for a search query. The bot always
// searches in latest order; ranked results reorder older posts to the front
// and defeat the "newest unseen post" selection.
type SearchMode int

const (
	SearchLatest SearchMode = iota
	SearchTop
)

// Post is the platform-neutral view of a post returned by search.
type Post struct {
	ID           string
	AuthorHandle string
	AuthorID     string
	Text         string
	PostedAt     time.Time
	PermanentURL string
}

// Profile identifies the logged-in account.
type Profile struct {
	ID     string
	Handle string
}

// Credentials is everything a credential login may need. Email and the
// two-factor secret are only consulted when the platform asks for them.
type Credentials struct {
	Username        string
	Password        string
	Email           string
	TwoFactorSecret string
}

// Client is the subset of the scraping library the bot depends on.
type Client interface {
	// Login performs a credential login.
	Login(ctx context.Context, creds Credentials) error
	// IsLoggedIn reports whether the current session is live. Used as the
	// pre-cycle liveness check and after restoring a stored session.
	IsLoggedIn(ctx context.Context) (bool, error)
	// Me returns the logged-in identity. Best-effort after session restore.
	Me(ctx context.Context) (Profile, error)

	// Cookies exports the current session artifact for persistence.
	Cookies() []*http.Cookie
	// SetCookies applies a previously persisted session artifact.
	SetCookies(cookies []*http.Cookie)

	// Search returns up to limit posts matching the query.
	Search(ctx context.Context, query string, limit int, mode SearchMode) ([]Post, error)
	// Quote publishes a public quote-post referencing the given post ID.
	Quote(ctx context.Context, postID, text string) error
	// DirectMessage sends a private message to the author of a post.
	// Best-effort; failures never block the public reply.
	DirectMessage(ctx context.Context, userID, text string) error
}
