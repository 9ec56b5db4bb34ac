package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pvaldes/mention-bot/pkg/activity"
	"github.com/pvaldes/mention-bot/pkg/api"
	"github.com/pvaldes/mention-bot/pkg/auth"
	"github.com/pvaldes/mention-bot/pkg/config"
	"github.com/pvaldes/mention-bot/pkg/llm"
	"github.com/pvaldes/mention-bot/pkg/platform"
	"github.com/pvaldes/mention-bot/pkg/respond"
	"github.com/pvaldes/mention-bot/pkg/session"
	"github.com/pvaldes/mention-bot/pkg/watch"
)

func newRunCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the monitoring loop and the hand-off HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateBot(); err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg, *debug)
		},
	}
}

func runBot(parent context.Context, cfg *config.Config, debug bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(debug)

	activities, err := activity.Open(activity.Options{Dir: filepath.Join(cfg.DataDir, "activity")})
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer activities.Close()

	sessions := session.NewStore(cfg.DataDir)
	handled, err := session.LoadHandledSet(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load handled set: %w", err)
	}
	logger.Info("handled set loaded", "size", handled.Len())

	client, err := platform.NewScraperClient(platform.ScraperOptions{
		Username: cfg.Username,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return fmt.Errorf("create platform client: %w", err)
	}

	authenticator := auth.New(sessions, platform.Credentials{
		Username:        cfg.Username,
		Password:        cfg.Password,
		Email:           cfg.Email,
		TwoFactorSecret: cfg.TwoFactorSecret,
	}, logger)
	if err := authenticator.Bootstrap(ctx, client); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	self, err := client.Me(ctx)
	if err != nil {
		// Own-post filtering still works off the configured username.
		logger.Warn("could not resolve own profile", "err", err)
		self = platform.Profile{Handle: cfg.Username}
	}

	var rewriter respond.Rewriter
	if cfg.GoogleAPIKey != "" {
		provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			APIKey: cfg.GoogleAPIKey,
			Model:  cfg.GoogleModel,
		})
		if err != nil {
			return fmt.Errorf("create completion provider: %w", err)
		}
		rewriter = provider
		logger.Info("reply rewriting enabled", "model", provider.Model())
	} else {
		logger.Info("no completion key set, over-limit replies will be truncated")
	}

	store := watch.NewStore()
	poller := watch.NewPoller(client, cfg.Keyword, self, handled, store, logger)
	responder := respond.New(respond.Config{
		Client:    client,
		Store:     store,
		Handled:   handled,
		Sessions:  sessions,
		Rewriter:  rewriter,
		CharLimit: cfg.ReplyCharLimit,
		DMEnabled: cfg.DMEnabled,
		Log:       activities,
		Logger:    logger,
	})
	runner := watch.NewRunner(watch.RunnerConfig{
		Client:        client,
		Authenticator: authenticator,
		Poller:        poller,
		Store:         store,
		Responder:     responder,
		CycleInterval: cfg.CycleInterval,
		ReplyWait:     cfg.ReplyWait,
		Log:           activities,
		Logger:        logger,
	})

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(store, handled, logger).Handler(),
	}
	httpErr := make(chan error, 1)
	go func() {
		logger.Info("hand-off server listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("monitoring started",
		"keyword", cfg.Keyword,
		"interval", cfg.CycleInterval,
		"reply_wait", cfg.ReplyWait,
		"dm_enabled", cfg.DMEnabled)

	runnerErr := make(chan error, 1)
	go func() { runnerErr <- runner.Run(ctx) }()

	select {
	case err := <-httpErr:
		return fmt.Errorf("hand-off server: %w", err)
	case err := <-runnerErr:
		if errors.Is(err, context.Canceled) {
			logger.Info("shutting down")
			return nil
		}
		return err
	}
}
