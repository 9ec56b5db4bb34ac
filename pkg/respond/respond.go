// Package respond publishes externally generated replies: optional rewrite
// to the platform character ceiling, optional private message, public quote,
// and the bookkeeping that marks a post handled.
package respond

import (
	"context"
	"log/slog"
	"time"

	"github.com/pvaldes/mention-bot/pkg/activity"
	"github.com/pvaldes/mention-bot/pkg/platform"
	"github.com/pvaldes/mention-bot/pkg/session"
	"github.com/pvaldes/mention-bot/pkg/types"
	"github.com/pvaldes/mention-bot/pkg/watch"
)

const publishTimeout = 45 * time.Second

// Rewriter is the external text-completion service used to compress a reply
// to the character ceiling. Satisfied by llm.GeminiProvider.
type Rewriter interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Responder publishes replies for tracked posts.
type Responder struct {
	client   platform.Client
	store    *watch.Store
	handled  *session.HandledSet
	sessions *session.Store
	rewriter Rewriter // nil disables rewriting; over-limit replies are truncated

	charLimit int
	dmEnabled bool

	log    *activity.Log
	logger *slog.Logger
}

// Config wires a Responder.
type Config struct {
	Client    platform.Client
	Store     *watch.Store
	Handled   *session.HandledSet
	Sessions  *session.Store
	Rewriter  Rewriter
	CharLimit int
	DMEnabled bool
	Log       *activity.Log
	Logger    *slog.Logger
}

// New creates a Responder.
func New(cfg Config) *Responder {
	return &Responder{
		client:    cfg.Client,
		store:     cfg.Store,
		handled:   cfg.Handled,
		sessions:  cfg.Sessions,
		rewriter:  cfg.Rewriter,
		charLimit: cfg.CharLimit,
		dmEnabled: cfg.DMEnabled,
		log:       cfg.Log,
		logger:    cfg.Logger,
	}
}

// Respond finishes the cycle for a tracked post. It always terminates
// normally: every failure is logged and absorbed, and the active slot is
// released on every exit path.
func (r *Responder) Respond(ctx context.Context, post types.TrackedPost) {
	defer r.store.ClearActive(post.ID)
	defer r.markHandled(post.ID)

	if post.Reply == "" {
		r.logger.Info("no reply within budget, marking handled", "post_id", post.ID)
		return
	}

	text := r.fitToLimit(ctx, post.Reply)
	r.store.SetOptimizedReply(post.ID, text)

	// Platform clients may rotate tokens on write operations; capture them
	// after any successful write, even when a later step fails.
	wrote := false
	defer func() {
		if !wrote {
			return
		}
		if err := r.sessions.Save(r.client.Cookies()); err != nil {
			r.logger.Warn("could not refresh session artifact", "err", err)
		}
	}()

	if r.dmEnabled && post.AuthorID != "" {
		dmCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := r.client.DirectMessage(dmCtx, post.AuthorID, text)
		cancel()
		if err != nil {
			r.logger.Warn("dm failed, continuing with public reply", "post_id", post.ID, "err", err)
		} else {
			wrote = true
			r.store.SetDMSent(post.ID)
			_ = r.log.Record(types.Activity{Kind: types.ActivityDM, PostID: post.ID, Author: post.AuthorHandle})
		}
	}

	quoteCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	err := r.client.Quote(quoteCtx, post.ID, text)
	cancel()
	if err != nil {
		r.logger.Error("publishing quote failed", "post_id", post.ID, "err", err)
		return
	}
	wrote = true

	r.logger.Info("published reply", "post_id", post.ID, "chars", len([]rune(text)))
	_ = r.log.Record(types.Activity{Kind: types.ActivityPublished, PostID: post.ID, Author: post.AuthorHandle, Detail: text})
}

// markHandled persists the post ID so it is never re-processed.
func (r *Responder) markHandled(id string) {
	r.store.MarkHandled(id)
	if err := r.handled.Add(id); err != nil {
		r.logger.Error("could not persist handled id", "post_id", id, "err", err)
	}
}

// fitToLimit returns text that fits the character ceiling. Replies already
// under the ceiling pass through unchanged. Oversized replies get a single
// rewrite attempt; any failure falls back to naive truncation.
func (r *Responder) fitToLimit(ctx context.Context, reply string) string {
	if len([]rune(reply)) <= r.charLimit {
		return reply
	}
	if r.rewriter != nil {
		if rewritten, err := r.rewrite(ctx, reply); err == nil {
			return rewritten
		} else {
			r.logger.Warn("reply rewrite failed, truncating", "err", err)
		}
	}
	return Truncate(reply, r.charLimit)
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
