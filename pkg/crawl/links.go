package crawl

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxDiscoveredURLs caps the crawl frontier regardless of how the URLs were
// discovered; huge sitemaps and link-heavy homepages get the same bound.
const maxDiscoveredURLs = 50

var (
	skipExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".pdf", ".mp3", ".mp4", ".css", ".js"}
	skipPathParts  = []string{"/wp-json/", "/wp-admin/", "/wp-content/", "/tag/", "/category/", "/author/"}
)

// scrapeHomepageLinks is the discovery fallback for sites without any
// sitemap: fetch the homepage and collect the same-host page links found on
// it (depth 1).
func scrapeHomepageLinks(ctx context.Context, client *http.Client, siteURL string, logger *slog.Logger) ([]string, error) {
	base, err := url.Parse(strings.TrimRight(siteURL, "/") + "/")
	if err != nil {
		return nil, err
	}

	body, err := fetchBody(ctx, client, base.String())
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{base.String(): true}
	var urls []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if link := resolvePageLink(base, attr.Val); link != "" && !seen[link] {
					seen[link] = true
					urls = append(urls, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	logger.Info("scraped links from homepage", "site", siteURL, "count", len(urls))
	return urls, nil
}

// resolvePageLink resolves href against base and returns the absolute URL
// when it points at a crawlable page on the same host, or "" otherwise.
func resolvePageLink(base *url.URL, href string) string {
	u, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host != base.Host || u.Fragment != "" {
		return ""
	}

	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return ""
		}
	}
	for _, part := range skipPathParts {
		if strings.Contains(path, part) {
			return ""
		}
	}
	return u.String()
}

// capURLs bounds the discovered URL list.
func capURLs(urls []string) []string {
	if len(urls) > maxDiscoveredURLs {
		return urls[:maxDiscoveredURLs]
	}
	return urls
}
