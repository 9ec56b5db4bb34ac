package respond

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pvaldes/mention-bot/pkg/platform/platformtest"
	"github.com/pvaldes/mention-bot/pkg/session"
	"github.com/pvaldes/mention-bot/pkg/types"
	"github.com/pvaldes/mention-bot/pkg/watch"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type failingRewriter struct{}

func (failingRewriter) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("completion service unavailable")
}

type fixedRewriter struct{ out string }

func (f fixedRewriter) Generate(ctx context.Context, prompt string) (string, error) {
	return f.out, nil
}

func newResponder(t *testing.T, client *platformtest.FakeClient, rewriter Rewriter, dm bool) (*Responder, *watch.Store, *session.HandledSet) {
	t.Helper()
	dir := t.TempDir()
	handled, err := session.LoadHandledSet(dir)
	if err != nil {
		t.Fatalf("LoadHandledSet: %v", err)
	}
	store := watch.NewStore()
	r := New(Config{
		Client:    client,
		Store:     store,
		Handled:   handled,
		Sessions:  session.NewStore(dir),
		Rewriter:  rewriter,
		CharLimit: 280,
		DMEnabled: dm,
		Logger:    slog.New(slog.NewTextHandler(discard{}, nil)),
	})
	return r, store, handled
}

func track(t *testing.T, store *watch.Store, post types.TrackedPost) {
	t.Helper()
	if err := store.Track(post); err != nil {
		t.Fatalf("Track: %v", err)
	}
}

func TestRespondPublishesShortReplyUnchanged(t *testing.T) {
	client := &platformtest.FakeClient{}
	r, store, handled := newResponder(t, client, nil, false)

	post := types.TrackedPost{ID: "1", AuthorHandle: "alice", Text: "hello @bot", DiscoveredAt: time.Now()}
	track(t, store, post)
	post.Reply = "hi"

	r.Respond(context.Background(), post)

	if len(client.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(client.Quotes))
	}
	if client.Quotes[0].Text != "hi" {
		t.Errorf("published text = %q, want unchanged %q", client.Quotes[0].Text, "hi")
	}
	if !handled.Contains("1") {
		t.Error("expected id persisted to handled set")
	}
	got, _ := store.Get("1")
	if !got.Handled {
		t.Error("expected post marked handled")
	}
	if _, active := store.Active(); active {
		t.Error("expected active slot cleared")
	}
}

func TestRespondTruncatesWhenRewriterFails(t *testing.T) {
	client := &platformtest.FakeClient{}
	r, store, _ := newResponder(t, client, failingRewriter{}, false)

	post := types.TrackedPost{ID: "2", AuthorHandle: "bob", DiscoveredAt: time.Now()}
	track(t, store, post)
	post.Reply = strings.Repeat("x", 400)

	r.Respond(context.Background(), post)

	if len(client.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(client.Quotes))
	}
	if got := len([]rune(client.Quotes[0].Text)); got != 280 {
		t.Errorf("published length = %d, want exactly 280", got)
	}
}

func TestRespondUsesRewriteWhenOverLimit(t *testing.T) {
	client := &platformtest.FakeClient{}
	r, store, _ := newResponder(t, client, fixedRewriter{out: "short version"}, false)

	post := types.TrackedPost{ID: "3", DiscoveredAt: time.Now()}
	track(t, store, post)
	post.Reply = strings.Repeat("y", 300)

	r.Respond(context.Background(), post)

	if client.Quotes[0].Text != "short version" {
		t.Errorf("published text = %q, want rewritten", client.Quotes[0].Text)
	}
	got, _ := store.Get("3")
	if got.OptimizedReply != "short version" {
		t.Errorf("OptimizedReply = %q", got.OptimizedReply)
	}
}

func TestRespondNoReplyStillHandled(t *testing.T) {
	client := &platformtest.FakeClient{}
	r, store, handled := newResponder(t, client, nil, false)

	post := types.TrackedPost{ID: "4", DiscoveredAt: time.Now()}
	track(t, store, post)

	r.Respond(context.Background(), post)

	if len(client.Quotes) != 0 {
		t.Errorf("expected no publish without a reply, got %d", len(client.Quotes))
	}
	if !handled.Contains("4") {
		t.Error("expected id persisted despite missing reply")
	}
	if _, active := store.Active(); active {
		t.Error("expected active slot cleared")
	}
}

func TestRespondDMFailureDoesNotBlockQuote(t *testing.T) {
	client := &platformtest.FakeClient{
		DMFunc: func(ctx context.Context, userID, text string) error {
			return errors.New("dms closed")
		},
	}
	r, store, _ := newResponder(t, client, nil, true)

	post := types.TrackedPost{ID: "5", AuthorID: "u5", DiscoveredAt: time.Now()}
	track(t, store, post)
	post.Reply = "answer"

	r.Respond(context.Background(), post)

	if len(client.Quotes) != 1 {
		t.Fatalf("expected quote despite dm failure, got %d", len(client.Quotes))
	}
	got, _ := store.Get("5")
	if got.DMSent {
		t.Error("DMSent should be false after a failed dm")
	}
}

func TestRespondClearsSlotOnPublishFailure(t *testing.T) {
	client := &platformtest.FakeClient{
		QuoteFunc: func(ctx context.Context, postID, text string) error {
			return errors.New("duplicate tweet")
		},
	}
	r, store, handled := newResponder(t, client, nil, false)

	post := types.TrackedPost{ID: "6", DiscoveredAt: time.Now()}
	track(t, store, post)
	post.Reply = "will fail"

	r.Respond(context.Background(), post)

	if _, active := store.Active(); active {
		t.Error("expected active slot cleared even when publishing fails")
	}
	if !handled.Contains("6") {
		t.Error("expected id persisted even when publishing fails")
	}
}

func TestRespondRefreshesSessionAfterDMWhenQuoteFails(t *testing.T) {
	client := &platformtest.FakeClient{
		Session: []*http.Cookie{{Name: "auth_token", Value: "rotated"}},
		QuoteFunc: func(ctx context.Context, postID, text string) error {
			return errors.New("duplicate tweet")
		},
	}

	dir := t.TempDir()
	handled, err := session.LoadHandledSet(dir)
	if err != nil {
		t.Fatalf("LoadHandledSet: %v", err)
	}
	sessions := session.NewStore(dir)
	store := watch.NewStore()
	r := New(Config{
		Client:    client,
		Store:     store,
		Handled:   handled,
		Sessions:  sessions,
		CharLimit: 280,
		DMEnabled: true,
		Logger:    slog.New(slog.NewTextHandler(discard{}, nil)),
	})

	post := types.TrackedPost{ID: "7", AuthorID: "u7", DiscoveredAt: time.Now()}
	track(t, store, post)
	post.Reply = "answer"

	r.Respond(context.Background(), post)

	if len(client.DMs) != 1 {
		t.Fatalf("expected 1 dm, got %d", len(client.DMs))
	}
	cookies, err := sessions.Load()
	if err != nil {
		t.Fatalf("expected artifact refreshed after the dm write, got %v", err)
	}
	if len(cookies) != 1 || cookies[0].Value != "rotated" {
		t.Errorf("artifact = %+v, want the rotated cookie", cookies)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("Truncate = %q, want %q", got, "héllo")
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q, want unchanged", got)
	}
}
