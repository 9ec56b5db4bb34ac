package platform

import (
	"context"
	"fmt"
	"net/http"

	twitterscraper "github.com/imperatrona/twitter-scraper"
)

// ScraperClient implements Client on top of the twitter-scraper library.
type ScraperClient struct {
	scraper  *twitterscraper.Scraper
	username string
	selfID   string
}

// ScraperOptions configures the real platform client.
type ScraperOptions struct {
	Username string
	ProxyURL string
	// Delay between paginated requests, in seconds. Zero disables it.
	RequestDelay int64
}

// NewScraperClient creates a client backed by the scraping library.
func NewScraperClient(opts ScraperOptions) (*ScraperClient, error) {
	s := twitterscraper.New()
	s.SetSearchMode(twitterscraper.SearchLatest)
	if opts.RequestDelay > 0 {
		s.WithDelay(opts.RequestDelay)
	}
	if opts.ProxyURL != "" {
		if err := s.SetProxy(opts.ProxyURL); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}
	return &ScraperClient{scraper: s, username: opts.Username}, nil
}

var _ Client = (*ScraperClient)(nil)

// runBounded races fn against ctx. The library's calls do not take a
// context themselves, so a stuck call is abandoned (not cancelled) when the
// deadline passes; the goroutine finishes on its own and its result is
// dropped.
func runBounded(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ScraperClient) Login(ctx context.Context, creds Credentials) error {
	return runBounded(ctx, func() error {
		switch {
		case creds.Email != "" && creds.TwoFactorSecret != "":
			return c.scraper.Login(creds.Username, creds.Password, creds.Email, creds.TwoFactorSecret)
		case creds.Email != "":
			return c.scraper.Login(creds.Username, creds.Password, creds.Email)
		case creds.TwoFactorSecret != "":
			return c.scraper.Login(creds.Username, creds.Password, creds.TwoFactorSecret)
		default:
			return c.scraper.Login(creds.Username, creds.Password)
		}
	})
}

func (c *ScraperClient) IsLoggedIn(ctx context.Context) (bool, error) {
	var live bool
	err := runBounded(ctx, func() error {
		live = c.scraper.IsLoggedIn()
		return nil
	})
	return live, err
}

func (c *ScraperClient) Me(ctx context.Context) (Profile, error) {
	var profile Profile
	err := runBounded(ctx, func() error {
		p, err := c.scraper.GetProfile(c.username)
		if err != nil {
			return err
		}
		profile = Profile{ID: p.UserID, Handle: p.Username}
		return nil
	})
	if err == nil {
		c.selfID = profile.ID
	}
	return profile, err
}

func (c *ScraperClient) Cookies() []*http.Cookie {
	return c.scraper.GetCookies()
}

func (c *ScraperClient) SetCookies(cookies []*http.Cookie) {
	c.scraper.SetCookies(cookies)
}

func (c *ScraperClient) Search(ctx context.Context, query string, limit int, mode SearchMode) ([]Post, error) {
	if mode == SearchTop {
		c.scraper.SetSearchMode(twitterscraper.SearchTop)
		defer c.scraper.SetSearchMode(twitterscraper.SearchLatest)
	}

	var posts []Post
	for result := range c.scraper.SearchTweets(ctx, query, limit) {
		if result.Error != nil {
			return posts, fmt.Errorf("search %q: %w", query, result.Error)
		}
		posts = append(posts, Post{
			ID:           result.ID,
			AuthorHandle: result.Username,
			AuthorID:     result.UserID,
			Text:         result.Text,
			PostedAt:     result.TimeParsed,
			PermanentURL: result.PermanentURL,
		})
	}
	if err := ctx.Err(); err != nil {
		return posts, err
	}
	return posts, nil
}

func (c *ScraperClient) Quote(ctx context.Context, postID, text string) error {
	// Quoting by URL: appending the canonical status URL makes the platform
	// render the referenced post as a quote card.
	body := text + " https://twitter.com/i/status/" + postID
	return runBounded(ctx, func() error {
		_, err := c.scraper.CreateTweet(twitterscraper.NewTweet{Text: body})
		if err != nil {
			return fmt.Errorf("publish quote of %s: %w", postID, err)
		}
		return nil
	})
}

func (c *ScraperClient) DirectMessage(ctx context.Context, userID, text string) error {
	if c.selfID == "" {
		if _, err := c.Me(ctx); err != nil {
			return fmt.Errorf("resolve own id for dm: %w", err)
		}
	}
	conversationID := userID + "-" + c.selfID
	return runBounded(ctx, func() error {
		_, err := c.scraper.SendDirectMessage(conversationID, text)
		if err != nil {
			return fmt.Errorf("send dm: %w", err)
		}
		return nil
	})
}
