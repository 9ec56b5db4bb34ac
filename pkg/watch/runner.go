package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/pvaldes/mention-bot/pkg/activity"
	"github.com/pvaldes/mention-bot/pkg/auth"
	"github.com/pvaldes/mention-bot/pkg/platform"
	"github.com/pvaldes/mention-bot/pkg/types"
)

const livenessTimeout = 15 * time.Second

// Responder finishes a cycle for a tracked post. Implemented by
// respond.Responder.
type Responder interface {
	Respond(ctx context.Context, post types.TrackedPost)
}

// Runner drives the fixed-interval monitoring cycle:
// IDLE -> SEARCHING -> AWAITING_REPLY -> PUBLISHING -> IDLE, with
// re-authentication whenever the pre-cycle liveness check fails.
type Runner struct {
	client        platform.Client
	authenticator *auth.Authenticator
	poller        *Poller
	store         *Store
	responder     Responder

	cycleInterval time.Duration
	replyWait     time.Duration

	log    *activity.Log
	logger *slog.Logger
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Client        platform.Client
	Authenticator *auth.Authenticator
	Poller        *Poller
	Store         *Store
	Responder     Responder
	CycleInterval time.Duration
	ReplyWait     time.Duration
	Log           *activity.Log
	Logger        *slog.Logger
}

// NewRunner creates the main-cycle runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		client:        cfg.Client,
		authenticator: cfg.Authenticator,
		poller:        cfg.Poller,
		store:         cfg.Store,
		responder:     cfg.Responder,
		cycleInterval: cfg.CycleInterval,
		replyWait:     cfg.ReplyWait,
		log:           cfg.Log,
		logger:        cfg.Logger,
	}
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately; later cycles re-arm on the fixed interval regardless of
// which path the previous cycle took.
func (r *Runner) Run(ctx context.Context) error {
	r.RunCycle(ctx)

	ticker := time.NewTicker(r.cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle executes one pass of the state machine. Never returns an error:
// every failure defers to the next scheduled cycle.
func (r *Runner) RunCycle(ctx context.Context) {
	if post, ok := r.store.Active(); ok {
		r.logger.Info("active slot occupied, skipping cycle", "post_id", post.ID)
		return
	}

	if !r.ensureLive(ctx) {
		return
	}

	post, ok := r.poller.FindCandidate(ctx)
	if !ok {
		return
	}
	_ = r.log.Record(types.Activity{Kind: types.ActivityDiscovered, PostID: post.ID, Author: post.AuthorHandle})

	if reply, got := r.store.AwaitReply(ctx, post.ID, r.replyWait); got {
		r.logger.Info("reply received", "post_id", post.ID, "chars", len(reply))
		_ = r.log.Record(types.Activity{Kind: types.ActivityReply, PostID: post.ID})
	} else {
		r.logger.Info("reply wait budget exhausted", "post_id", post.ID)
		_ = r.log.Record(types.Activity{Kind: types.ActivityTimeout, PostID: post.ID})
	}

	// Re-read: the facade may have attached a reply right at the deadline.
	if current, ok := r.store.Get(post.ID); ok {
		post = current
	}
	r.responder.Respond(ctx, post)
}

// ensureLive runs the pre-cycle liveness check, re-authenticating on
// failure. Returns false when the cycle should be abandoned.
func (r *Runner) ensureLive(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, livenessTimeout)
	live, err := r.client.IsLoggedIn(checkCtx)
	cancel()
	if live && err == nil {
		return true
	}

	r.logger.Warn("session not live, re-authenticating", "err", err)
	if err := r.authenticator.Authenticate(ctx, r.client); err != nil {
		r.logger.Error("re-authentication failed, abandoning cycle", "err", err)
		return false
	}
	_ = r.log.Record(types.Activity{Kind: types.ActivityReauth})
	return true
}
