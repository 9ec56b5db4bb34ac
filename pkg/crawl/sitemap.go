package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const sitemapFetchTimeout = 10 * time.Second

// sitemap matches both <urlset> and <sitemapindex> documents; only the loc
// values matter.
type sitemap struct {
	XMLName  xml.Name     `xml:""`
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// DiscoverURLs finds page URLs for a site by trying the usual sitemap
// locations, following sitemap indexes, and falling back to the robots.txt
// Sitemap directive. Sites with no sitemap at all fall back to scraping
// same-host links from the homepage. The result is capped at
// maxDiscoveredURLs either way.
func DiscoverURLs(ctx context.Context, client *http.Client, siteURL string, logger *slog.Logger) ([]string, error) {
	base := strings.TrimRight(siteURL, "/")
	candidates := []string{
		base + "/sitemap.xml",
		base + "/sitemap_index.xml",
		base + "/sitemap-index.xml",
		base + "/wp-sitemap.xml",
		base + "/robots.txt",
	}

	for _, candidate := range candidates {
		logger.Debug("trying sitemap candidate", "url", candidate)

		body, err := fetchBody(ctx, client, candidate)
		if err != nil {
			logger.Debug("sitemap candidate failed", "url", candidate, "err", err)
			continue
		}

		if strings.HasSuffix(candidate, "robots.txt") {
			for _, line := range strings.Split(string(body), "\n") {
				if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
					continue
				}
				sitemapURL := strings.TrimSpace(line[len("sitemap:"):])
				data, err := fetchBody(ctx, client, sitemapURL)
				if err != nil {
					logger.Debug("robots sitemap failed", "url", sitemapURL, "err", err)
					continue
				}
				if urls := extractSitemapURLs(ctx, client, data, logger); len(urls) > 0 {
					return capURLs(urls), nil
				}
			}
			continue
		}

		if urls := extractSitemapURLs(ctx, client, body, logger); len(urls) > 0 {
			return capURLs(urls), nil
		}
	}

	logger.Info("no sitemap found, scraping links from homepage", "site", siteURL)
	urls, err := scrapeHomepageLinks(ctx, client, siteURL, logger)
	if err != nil {
		return nil, fmt.Errorf("no sitemap and homepage scrape failed for %s: %w", siteURL, err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no sitemap or homepage links found for %s", siteURL)
	}
	return capURLs(urls), nil
}

// extractSitemapURLs parses sitemap XML, recursing into sitemap indexes.
func extractSitemapURLs(ctx context.Context, client *http.Client, data []byte, logger *slog.Logger) []string {
	var sm sitemap
	if err := xml.Unmarshal(data, &sm); err != nil {
		logger.Debug("sitemap parse failed", "err", err)
		return nil
	}

	if len(sm.Sitemaps) > 0 {
		var all []string
		for _, sub := range sm.Sitemaps {
			body, err := fetchBody(ctx, client, sub.Loc)
			if err != nil {
				logger.Debug("sub-sitemap fetch failed", "url", sub.Loc, "err", err)
				continue
			}
			all = append(all, extractSitemapURLs(ctx, client, body, logger)...)
		}
		return all
	}

	urls := make([]string, 0, len(sm.URLs))
	for _, u := range sm.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls
}

func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, sitemapFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", crawlerUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
