package watch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pvaldes/mention-bot/pkg/platform"
	"github.com/pvaldes/mention-bot/pkg/session"
	"github.com/pvaldes/mention-bot/pkg/types"
)

const (
	searchPageSize = 20
	searchTimeout  = 45 * time.Second
)

// Poller queries the platform for new posts matching the keyword and picks
// at most one unseen candidate per invocation.
type Poller struct {
	client  platform.Client
	keyword string
	self    platform.Profile
	handled *session.HandledSet
	store   *Store
	logger  *slog.Logger
}

// NewPoller creates a search poller.
func NewPoller(client platform.Client, keyword string, self platform.Profile, handled *session.HandledSet, store *Store, logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		keyword: keyword,
		self:    self,
		handled: handled,
		store:   store,
		logger:  logger,
	}
}

// FindCandidate searches in latest order and returns the first post that
// survives filtering, already tracked in the store. Transport errors and
// timeouts return no candidate; the next scheduled cycle retries.
func (p *Poller) FindCandidate(ctx context.Context) (types.TrackedPost, bool) {
	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	posts, err := p.client.Search(searchCtx, p.keyword, searchPageSize, platform.SearchLatest)
	if err != nil {
		p.logger.Warn("search failed, deferring to next cycle", "err", err)
		return types.TrackedPost{}, false
	}

	keyword := strings.ToLower(p.keyword)
	for _, post := range posts {
		if strings.EqualFold(post.AuthorHandle, p.self.Handle) {
			continue
		}
		if p.handled.Contains(post.ID) {
			continue
		}
		if !strings.Contains(strings.ToLower(post.Text), keyword) {
			continue
		}

		tracked := types.TrackedPost{
			ID:           post.ID,
			AuthorHandle: post.AuthorHandle,
			AuthorID:     post.AuthorID,
			Text:         post.Text,
			DiscoveredAt: time.Now(),
		}
		if err := p.store.Track(tracked); err != nil {
			p.logger.Warn("could not occupy active slot", "post_id", post.ID, "err", err)
			return types.TrackedPost{}, false
		}
		p.logger.Info("found candidate post", "post_id", post.ID, "author", post.AuthorHandle)
		return tracked, true
	}

	return types.TrackedPost{}, false
}
