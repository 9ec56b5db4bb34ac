package cli

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pvaldes/mention-bot/pkg/activity"
	"github.com/pvaldes/mention-bot/pkg/config"
	"github.com/pvaldes/mention-bot/pkg/crawl"
	"github.com/pvaldes/mention-bot/pkg/docstore"
	"github.com/pvaldes/mention-bot/pkg/llm"
)

func newCrawlCmd(debug *bool) *cobra.Command {
	var siteURL string

	cmd := &cobra.Command{
		Use:   "crawl [site-url]",
		Short: "Crawl a documentation site into the local chunk database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.CrawlSiteURL = args[0]
			} else if siteURL != "" {
				cfg.CrawlSiteURL = siteURL
			}
			if err := cfg.ValidateCrawl(); err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := newLogger(*debug)

			activities, err := activity.Open(activity.Options{Dir: filepath.Join(cfg.DataDir, "activity")})
			if err != nil {
				return fmt.Errorf("open activity log: %w", err)
			}
			defer activities.Close()

			store, err := docstore.Open(filepath.Join(cfg.DataDir, "docs.db"))
			if err != nil {
				return fmt.Errorf("open chunk store: %w", err)
			}
			defer store.Close()

			provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
				APIKey: cfg.GoogleAPIKey,
				Model:  cfg.GoogleModel,
			})
			if err != nil {
				return fmt.Errorf("create completion provider: %w", err)
			}

			pipeline := crawl.NewPipeline(crawl.PipelineConfig{
				HTTPClient:        http.DefaultClient,
				Annotator:         provider,
				Embedder:          provider,
				Store:             store,
				Activities:        activities,
				Logger:            logger,
				RequestsPerSecond: cfg.CrawlRPS,
				Concurrent:        cfg.CrawlConcurrent,
				Source:            "docs_crawl",
			})

			result, err := pipeline.Run(ctx, cfg.CrawlSiteURL)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Crawled %d/%d pages (%d failed), stored %d chunks\n",
				result.Pages, result.URLs, result.Failed, result.ChunksStored)
			return nil
		},
	}
	cmd.Flags().StringVar(&siteURL, "site", "", "site URL to crawl (overrides CRAWL_SITE_URL)")
	return cmd
}
