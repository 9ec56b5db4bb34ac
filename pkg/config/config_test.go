package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "@mention_bot", cfg.Keyword)
	assert.Equal(t, 280, cfg.ReplyCharLimit)
	assert.Equal(t, 4*time.Minute, cfg.CycleInterval)
	assert.Equal(t, 90*time.Second, cfg.ReplyWait)
	assert.False(t, cfg.DMEnabled)
	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "gemini-3-pro", cfg.GoogleModel)
	assert.Equal(t, 5, cfg.CrawlConcurrent)
	assert.Equal(t, 1.0, cfg.CrawlRPS)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TWITTER_USERNAME", "botuser")
	t.Setenv("TWITTER_PASSWORD", "hunter2")
	t.Setenv("SEARCH_KEYWORD", "@other_bot")
	t.Setenv("REPLY_CHAR_LIMIT", "140")
	t.Setenv("CYCLE_INTERVAL", "30s")
	t.Setenv("REPLY_WAIT", "2m")
	t.Setenv("DM_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "botuser", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "@other_bot", cfg.Keyword)
	assert.Equal(t, 140, cfg.ReplyCharLimit)
	assert.Equal(t, 30*time.Second, cfg.CycleInterval)
	assert.Equal(t, 2*time.Minute, cfg.ReplyWait)
	assert.True(t, cfg.DMEnabled)
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("CYCLE_INTERVAL", "every four minutes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CYCLE_INTERVAL")
}

func TestLoadRecoversFromNonPositiveCharLimit(t *testing.T) {
	t.Setenv("REPLY_CHAR_LIMIT", "-5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 280, cfg.ReplyCharLimit)
}

func TestValidateBot(t *testing.T) {
	cfg := &Config{Username: "botuser", Password: "hunter2", Keyword: "@mention_bot"}
	require.NoError(t, cfg.ValidateBot())

	missing := *cfg
	missing.Username = ""
	require.Error(t, missing.ValidateBot())

	missing = *cfg
	missing.Password = ""
	require.Error(t, missing.ValidateBot())

	missing = *cfg
	missing.Keyword = ""
	require.Error(t, missing.ValidateBot())
}

func TestValidateCrawl(t *testing.T) {
	cfg := &Config{CrawlSiteURL: "https://docs.example.com", GoogleAPIKey: "key"}
	require.NoError(t, cfg.ValidateCrawl())

	missing := *cfg
	missing.CrawlSiteURL = ""
	require.Error(t, missing.ValidateCrawl())

	missing = *cfg
	missing.GoogleAPIKey = ""
	require.Error(t, missing.ValidateCrawl())
}
