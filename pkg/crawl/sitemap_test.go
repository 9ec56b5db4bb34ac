package crawl

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestDiscoverURLsPlainSitemap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://docs.example.com/intro</loc></url>
  <url><loc>https://docs.example.com/api</loc></url>
</urlset>`))
	}))
	defer ts.Close()

	urls, err := DiscoverURLs(t.Context(), ts.Client(), ts.URL, testLogger())
	if err != nil {
		t.Fatalf("DiscoverURLs: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://docs.example.com/intro" {
		t.Fatalf("unexpected first url: %s", urls[0])
	}
}

func TestDiscoverURLsFollowsSitemapIndex(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + ts.URL + `/pages.xml</loc></sitemap>
</sitemapindex>`))
		case "/pages.xml":
			w.Write([]byte(`<?xml version="1.0"?>
<urlset><url><loc>https://docs.example.com/deep</loc></url></urlset>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	urls, err := DiscoverURLs(t.Context(), ts.Client(), ts.URL, testLogger())
	if err != nil {
		t.Fatalf("DiscoverURLs: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://docs.example.com/deep" {
		t.Fatalf("expected the nested url, got %v", urls)
	}
}

func TestDiscoverURLsRobotsFallback(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nSitemap: " + ts.URL + "/custom-map.xml\n"))
		case "/custom-map.xml":
			w.Write([]byte(`<urlset><url><loc>https://docs.example.com/from-robots</loc></url></urlset>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	urls, err := DiscoverURLs(t.Context(), ts.Client(), ts.URL, testLogger())
	if err != nil {
		t.Fatalf("DiscoverURLs: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://docs.example.com/from-robots" {
		t.Fatalf("expected the robots-discovered url, got %v", urls)
	}
}

func TestDiscoverURLsHomepageFallback(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body>
<a href="/docs/intro">Intro</a>
<a href="` + ts.URL + `/docs/api">API</a>
<a href="/docs/intro">Intro again</a>
<a href="https://elsewhere.example.com/page">external</a>
<a href="/docs/api#section">fragment</a>
<a href="/logo.png">image</a>
<a href="/wp-content/uploads/file">asset</a>
</body></html>`))
	}))
	defer ts.Close()

	urls, err := DiscoverURLs(t.Context(), ts.Client(), ts.URL, testLogger())
	if err != nil {
		t.Fatalf("DiscoverURLs: %v", err)
	}
	want := []string{ts.URL + "/docs/intro", ts.URL + "/docs/api"}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %d: %v", len(want), len(urls), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %s, want %s", i, urls[i], u)
		}
	}
}

func TestDiscoverURLsCapsFrontier(t *testing.T) {
	var locs strings.Builder
	for i := 0; i < maxDiscoveredURLs+20; i++ {
		fmt.Fprintf(&locs, "<url><loc>https://docs.example.com/page-%d</loc></url>", i)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<urlset>" + locs.String() + "</urlset>"))
	}))
	defer ts.Close()

	urls, err := DiscoverURLs(t.Context(), ts.Client(), ts.URL, testLogger())
	if err != nil {
		t.Fatalf("DiscoverURLs: %v", err)
	}
	if len(urls) != maxDiscoveredURLs {
		t.Fatalf("expected frontier capped at %d, got %d", maxDiscoveredURLs, len(urls))
	}
}

func TestDiscoverURLsNoSitemapNoHomepage(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	if _, err := DiscoverURLs(t.Context(), ts.Client(), ts.URL, testLogger()); err == nil {
		t.Fatal("expected an error when neither a sitemap nor a homepage exists")
	}
}
