// Package config loads environment-driven configuration for the bot.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the bot and the crawl pipeline read from the
// environment. Credentials are required to run the bot; the completion
// service key is optional and its absence only disables reply rewriting.
type Config struct {
	// Platform login
	Username        string
	Password        string
	Email           string
	TwoFactorSecret string
	ProxyURL        string

	// Completion / embedding service
	GoogleAPIKey string
	GoogleModel  string

	// Bot behavior
	Keyword        string
	ReplyCharLimit int
	CycleInterval  time.Duration
	ReplyWait      time.Duration
	DMEnabled      bool

	// HTTP facade
	ListenAddr string

	// Storage
	DataDir string

	// Crawl pipeline
	CrawlSiteURL    string
	CrawlConcurrent int
	CrawlRPS        float64
}

const (
	defaultReplyCharLimit = 280
	defaultCycleInterval  = 4 * time.Minute
	defaultReplyWait      = 90 * time.Second
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GOOGLE_MODEL", "gemini-3-pro")
	v.SetDefault("SEARCH_KEYWORD", "@mention_bot")
	v.SetDefault("REPLY_CHAR_LIMIT", defaultReplyCharLimit)
	v.SetDefault("CYCLE_INTERVAL", defaultCycleInterval.String())
	v.SetDefault("REPLY_WAIT", defaultReplyWait.String())
	v.SetDefault("DM_ENABLED", false)
	v.SetDefault("LISTEN_ADDR", ":3000")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("CRAWL_CONCURRENT", 5)
	v.SetDefault("CRAWL_RPS", 1.0)

	cfg := &Config{
		Username:        v.GetString("TWITTER_USERNAME"),
		Password:        v.GetString("TWITTER_PASSWORD"),
		Email:           v.GetString("TWITTER_EMAIL"),
		TwoFactorSecret: v.GetString("TWITTER_2FA_SECRET"),
		ProxyURL:        v.GetString("PROXY_URL"),
		GoogleAPIKey:    v.GetString("GOOGLE_API_KEY"),
		GoogleModel:     v.GetString("GOOGLE_MODEL"),
		Keyword:         v.GetString("SEARCH_KEYWORD"),
		ReplyCharLimit:  v.GetInt("REPLY_CHAR_LIMIT"),
		DMEnabled:       v.GetBool("DM_ENABLED"),
		ListenAddr:      v.GetString("LISTEN_ADDR"),
		DataDir:         v.GetString("DATA_DIR"),
		CrawlSiteURL:    v.GetString("CRAWL_SITE_URL"),
		CrawlConcurrent: v.GetInt("CRAWL_CONCURRENT"),
		CrawlRPS:        v.GetFloat64("CRAWL_RPS"),
	}

	var err error
	if cfg.CycleInterval, err = time.ParseDuration(v.GetString("CYCLE_INTERVAL")); err != nil {
		return nil, fmt.Errorf("invalid CYCLE_INTERVAL: %w", err)
	}
	if cfg.ReplyWait, err = time.ParseDuration(v.GetString("REPLY_WAIT")); err != nil {
		return nil, fmt.Errorf("invalid REPLY_WAIT: %w", err)
	}
	if cfg.ReplyCharLimit <= 0 {
		cfg.ReplyCharLimit = defaultReplyCharLimit
	}

	return cfg, nil
}

// ValidateBot checks the values the monitoring loop cannot run without.
// Called by the run command, not by Load, so the crawl pipeline can run
// without platform credentials.
func (c *Config) ValidateBot() error {
	if c.Username == "" {
		return fmt.Errorf("TWITTER_USERNAME is required")
	}
	if c.Password == "" {
		return fmt.Errorf("TWITTER_PASSWORD is required")
	}
	if c.Keyword == "" {
		return fmt.Errorf("SEARCH_KEYWORD is required")
	}
	return nil
}

// ValidateCrawl checks the values the crawl pipeline cannot run without.
func (c *Config) ValidateCrawl() error {
	if c.CrawlSiteURL == "" {
		return fmt.Errorf("CRAWL_SITE_URL is required")
	}
	if c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required for chunk summaries and embeddings")
	}
	return nil
}
