// Package platformtest provides a configurable in-memory platform.Client
// for tests.
package platformtest

import (
	"context"
	"net/http"
	"sync"

	"github.com/pvaldes/mention-bot/pkg/platform"
)

// FakeClient implements platform.Client with overridable behavior and call
// accounting. The zero value is usable: logged out, empty search results,
// all writes succeed.
type FakeClient struct {
	mu sync.Mutex

	// Overridable behavior. Nil funcs fall back to the defaults above.
	LoginFunc      func(ctx context.Context, creds platform.Credentials) error
	IsLoggedInFunc func(ctx context.Context) (bool, error)
	SearchFunc     func(ctx context.Context, query string, limit int, mode platform.SearchMode) ([]platform.Post, error)
	QuoteFunc      func(ctx context.Context, postID, text string) error
	DMFunc         func(ctx context.Context, userID, text string) error

	Self    platform.Profile
	Session []*http.Cookie

	// Call accounting.
	LoginCalls  int
	SearchCalls int
	Quotes      []PublishedQuote
	DMs         []SentDM
}

// PublishedQuote records one Quote call.
type PublishedQuote struct {
	PostID string
	Text   string
}

// SentDM records one DirectMessage call.
type SentDM struct {
	UserID string
	Text   string
}

var _ platform.Client = (*FakeClient)(nil)

func (f *FakeClient) Login(ctx context.Context, creds platform.Credentials) error {
	f.mu.Lock()
	f.LoginCalls++
	fn := f.LoginFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, creds)
	}
	return nil
}

func (f *FakeClient) IsLoggedIn(ctx context.Context) (bool, error) {
	f.mu.Lock()
	fn := f.IsLoggedInFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return true, nil
}

func (f *FakeClient) Me(ctx context.Context) (platform.Profile, error) {
	return f.Self, nil
}

func (f *FakeClient) Cookies() []*http.Cookie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Session
}

func (f *FakeClient) SetCookies(cookies []*http.Cookie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Session = cookies
}

func (f *FakeClient) Search(ctx context.Context, query string, limit int, mode platform.SearchMode) ([]platform.Post, error) {
	f.mu.Lock()
	f.SearchCalls++
	fn := f.SearchFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, query, limit, mode)
	}
	return nil, nil
}

func (f *FakeClient) Quote(ctx context.Context, postID, text string) error {
	f.mu.Lock()
	fn := f.QuoteFunc
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, postID, text); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.Quotes = append(f.Quotes, PublishedQuote{PostID: postID, Text: text})
	f.mu.Unlock()
	return nil
}

func (f *FakeClient) DirectMessage(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	fn := f.DMFunc
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, userID, text); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.DMs = append(f.DMs, SentDM{UserID: userID, Text: text})
	f.mu.Unlock()
	return nil
}
