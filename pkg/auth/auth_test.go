package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/pvaldes/mention-bot/pkg/platform"
	"github.com/pvaldes/mention-bot/pkg/platform/platformtest"
	"github.com/pvaldes/mention-bot/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newAuthenticator(t *testing.T) (*Authenticator, *session.Store) {
	t.Helper()
	store := session.NewStore(t.TempDir())
	a := New(store, platform.Credentials{Username: "bot", Password: "hunter2"}, testLogger())
	a.backoffBase = time.Millisecond
	return a, store
}

func TestAuthenticateRestoresLiveSession(t *testing.T) {
	a, store := newAuthenticator(t)
	if err := store.Save([]*http.Cookie{{Name: "auth_token", Value: "ok"}}); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	client := &platformtest.FakeClient{Self: platform.Profile{ID: "9", Handle: "bot"}}
	if err := a.Authenticate(context.Background(), client); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if client.LoginCalls != 0 {
		t.Errorf("expected no credential login, got %d calls", client.LoginCalls)
	}
	if len(client.Session) != 1 || client.Session[0].Value != "ok" {
		t.Errorf("expected stored cookies applied to client, got %+v", client.Session)
	}
}

func TestAuthenticateDeletesRejectedArtifact(t *testing.T) {
	a, store := newAuthenticator(t)
	if err := store.Save([]*http.Cookie{{Name: "auth_token", Value: "stale"}}); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	client := &platformtest.FakeClient{
		IsLoggedInFunc: func(ctx context.Context) (bool, error) { return false, nil },
		LoginFunc: func(ctx context.Context, creds platform.Credentials) error {
			return nil
		},
	}
	client.Session = []*http.Cookie{{Name: "auth_token", Value: "fresh"}}

	if err := a.Authenticate(context.Background(), client); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if client.LoginCalls != 1 {
		t.Errorf("expected 1 login call, got %d", client.LoginCalls)
	}

	// The new artifact replaced the rejected one.
	cookies, err := store.Load()
	if err != nil {
		t.Fatalf("Load after login: %v", err)
	}
	if cookies[0].Value != "fresh" {
		t.Errorf("expected fresh artifact persisted, got %q", cookies[0].Value)
	}
}

func TestCredentialLoginRetriesTransientFailures(t *testing.T) {
	a, _ := newAuthenticator(t)

	attempts := 0
	client := &platformtest.FakeClient{
		LoginFunc: func(ctx context.Context, creds platform.Credentials) error {
			attempts++
			if attempts < 3 {
				return errors.New("dial tcp: connection reset by peer")
			}
			return nil
		},
	}

	if err := a.Authenticate(context.Background(), client); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestCredentialLoginDoesNotRetryFatalFailures(t *testing.T) {
	a, _ := newAuthenticator(t)

	client := &platformtest.FakeClient{
		LoginFunc: func(ctx context.Context, creds platform.Credentials) error {
			return errors.New("authentication failed: wrong password")
		},
	}

	err := a.Authenticate(context.Background(), client)
	if err == nil {
		t.Fatal("expected error")
	}
	if client.LoginCalls != 1 {
		t.Errorf("expected exactly 1 attempt for a fatal failure, got %d", client.LoginCalls)
	}
}

func TestBootstrapRetriesFatalFailures(t *testing.T) {
	a, _ := newAuthenticator(t)

	client := &platformtest.FakeClient{
		LoginFunc: func(ctx context.Context, creds platform.Credentials) error {
			return errors.New("authentication failed: wrong password")
		},
	}

	err := a.Bootstrap(context.Background(), client)
	if err == nil {
		t.Fatal("expected error after exhausting initialization attempts")
	}
	if client.LoginCalls != 3 {
		t.Errorf("expected 3 initialization attempts, got %d", client.LoginCalls)
	}
}

func TestBootstrapSucceedsOnLaterAttempt(t *testing.T) {
	a, store := newAuthenticator(t)

	attempts := 0
	client := &platformtest.FakeClient{
		LoginFunc: func(ctx context.Context, creds platform.Credentials) error {
			attempts++
			if attempts < 2 {
				return errors.New("authentication failed: account locked")
			}
			return nil
		},
	}
	client.Session = []*http.Cookie{{Name: "auth_token", Value: "fresh"}}

	if err := a.Bootstrap(context.Background(), client); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected success on attempt 2, got %d attempts", attempts)
	}
	if _, err := store.Load(); err != nil {
		t.Errorf("expected artifact persisted after late success: %v", err)
	}
}

func TestCredentialLoginExhaustsRetries(t *testing.T) {
	a, _ := newAuthenticator(t)

	client := &platformtest.FakeClient{
		LoginFunc: func(ctx context.Context, creds platform.Credentials) error {
			return errors.New("request timed out")
		},
	}

	err := a.Authenticate(context.Background(), client)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if client.LoginCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", client.LoginCalls)
	}
}
