// Package auth implements login and session recovery for the platform
// client: stored-session restore first, credential login with bounded
// retry as the fallback.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pvaldes/mention-bot/pkg/platform"
	"github.com/pvaldes/mention-bot/pkg/session"
)

const (
	livenessTimeout = 15 * time.Second
	loginTimeout    = 45 * time.Second
	maxAttempts     = 3

	// bootstrapAttempts bounds process-startup authentication. Each failed
	// attempt is fatal to that attempt only; the process exits only after
	// all of them fail.
	bootstrapAttempts = 3
)

// Authenticator brings a platform client to a logged-in state.
type Authenticator struct {
	store  *session.Store
	creds  platform.Credentials
	logger *slog.Logger

	// backoffBase is the first retry delay; doubled after each transient
	// failure. Overridable in tests.
	backoffBase time.Duration
}

// New creates an authenticator.
func New(store *session.Store, creds platform.Credentials, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:       store,
		creds:       creds,
		logger:      logger,
		backoffBase: time.Second,
	}
}

// Authenticate tries stored-session restore, then credential login. A nil
// return means the client is logged in and the current artifact is
// persisted. A non-nil return is fatal to this initialization attempt
// only; the caller retries on its own schedule.
func (a *Authenticator) Authenticate(ctx context.Context, client platform.Client) error {
	if a.restoreSession(ctx, client) {
		return nil
	}

	// The artifact, if any, is now presumed invalid.
	if err := a.store.Clear(); err != nil {
		a.logger.Warn("could not delete stale session artifact", "err", err)
	}

	return a.credentialLogin(ctx, client)
}

// Bootstrap drives Authenticate at process startup, retrying failed
// initialization attempts with doubling delay until the bound is exhausted.
// Unlike credentialLogin's inner retry, this loop also covers non-transient
// failures, so a platform hiccup misclassified as fatal does not kill the
// process on its first attempt.
func (a *Authenticator) Bootstrap(ctx context.Context, client platform.Client) error {
	delay := a.backoffBase
	var lastErr error

	for attempt := 1; attempt <= bootstrapAttempts; attempt++ {
		err := a.Authenticate(ctx, client)
		if err == nil {
			return nil
		}

		lastErr = err
		a.logger.Warn("initialization attempt failed", "attempt", attempt, "err", err)
		if attempt == bootstrapAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	return fmt.Errorf("authentication failed after %d initialization attempts: %w", bootstrapAttempts, lastErr)
}

// restoreSession applies a stored artifact and verifies it with a bounded
// liveness check. Returns true when the session is live.
func (a *Authenticator) restoreSession(ctx context.Context, client platform.Client) bool {
	cookies, err := a.store.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoArtifact) {
			a.logger.Warn("stored session artifact unusable", "err", err)
		}
		return false
	}

	client.SetCookies(cookies)

	checkCtx, cancel := context.WithTimeout(ctx, livenessTimeout)
	defer cancel()
	live, err := client.IsLoggedIn(checkCtx)
	if err != nil || !live {
		a.logger.Info("stored session not live, falling back to credential login", "err", err)
		return false
	}

	// Identity fetch is best-effort; a failure here does not invalidate
	// the session.
	if me, err := client.Me(ctx); err == nil {
		a.logger.Info("restored session", "handle", me.Handle)
	} else {
		a.logger.Info("restored session, identity fetch failed", "err", err)
	}
	return true
}

// credentialLogin attempts username/password login, retrying with
// exponential backoff only on transient-network failures.
func (a *Authenticator) credentialLogin(ctx context.Context, client platform.Client) error {
	delay := a.backoffBase
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
		err := client.Login(loginCtx, a.creds)
		cancel()

		if err == nil {
			if saveErr := a.store.Save(client.Cookies()); saveErr != nil {
				a.logger.Warn("could not persist session artifact", "err", saveErr)
			}
			a.logger.Info("credential login succeeded", "attempt", attempt)
			return nil
		}

		lastErr = err
		if !platform.IsTransient(err) {
			return fmt.Errorf("login failed: %w", err)
		}

		a.logger.Warn("transient login failure", "attempt", attempt, "err", err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	return fmt.Errorf("login failed after %d attempts: %w", maxAttempts, lastErr)
}
