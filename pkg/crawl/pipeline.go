package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pvaldes/mention-bot/pkg/activity"
	"github.com/pvaldes/mention-bot/pkg/types"
)

const (
	// annotateTimeout bounds each title/summary model call.
	annotateTimeout = 30 * time.Second
	// embedTimeout bounds each embedding model call.
	embedTimeout = 30 * time.Second
	// fallbackEmbeddingDims is the dimension of the zero vector stored when
	// embedding fails, matching the configured model output size.
	fallbackEmbeddingDims = 1536

	fallbackTitle   = "Error processing title"
	fallbackSummary = "Error processing summary"
)

// Annotator produces a JSON object for a prompt. Satisfied by
// llm.GeminiProvider.
type Annotator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Embedder returns an embedding vector for a text. Satisfied by
// llm.GeminiProvider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore persists processed chunks. Satisfied by docstore.SQLiteStore.
type ChunkStore interface {
	Insert(ctx context.Context, chunk types.DocChunk) (string, error)
}

// Pipeline crawls a documentation site into the chunk store.
type Pipeline struct {
	client     *http.Client
	fetcher    *Fetcher
	annotator  Annotator
	embedder   Embedder
	store      ChunkStore
	activities *activity.Log
	logger     *slog.Logger

	chunkSize  int
	concurrent int
	source     string
}

// PipelineConfig configures a crawl run.
type PipelineConfig struct {
	HTTPClient *http.Client
	Annotator  Annotator
	Embedder   Embedder
	Store      ChunkStore
	Activities *activity.Log
	Logger     *slog.Logger

	RequestsPerSecond float64
	ChunkSize         int
	Concurrent        int
	Source            string // metadata tag recorded on every chunk
}

// NewPipeline builds a pipeline from cfg, applying defaults for zero values.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	concurrent := cfg.Concurrent
	if concurrent <= 0 {
		concurrent = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client:     client,
		fetcher:    NewFetcher(client, cfg.RequestsPerSecond),
		annotator:  cfg.Annotator,
		embedder:   cfg.Embedder,
		store:      cfg.Store,
		activities: cfg.Activities,
		logger:     logger,
		chunkSize:  chunkSize,
		concurrent: concurrent,
		source:     cfg.Source,
	}
}

// Result summarizes a crawl run.
type Result struct {
	URLs         int
	Pages        int
	Failed       int
	ChunksStored int
}

// Run discovers the site's pages and processes them with bounded
// concurrency. Per-page failures are logged and counted, not fatal.
func (p *Pipeline) Run(ctx context.Context, siteURL string) (Result, error) {
	urls, err := DiscoverURLs(ctx, p.client, siteURL, p.logger)
	if err != nil {
		return Result{}, fmt.Errorf("discover urls: %w", err)
	}
	p.logger.Info("discovered pages", "site", siteURL, "count", len(urls))

	var (
		mu     sync.Mutex
		result = Result{URLs: len(urls)}
		wg     sync.WaitGroup
		sem    = make(chan struct{}, p.concurrent)
	)

	for _, pageURL := range urls {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			stored, err := p.processPage(ctx, pageURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				p.logger.Warn("page failed", "url", pageURL, "err", err)
				return
			}
			result.Pages++
			result.ChunksStored += stored
		}(pageURL)
	}
	wg.Wait()

	return result, ctx.Err()
}

// processPage fetches one page, chunks it, and stores every chunk with its
// title, summary, and embedding.
func (p *Pipeline) processPage(ctx context.Context, pageURL string) (int, error) {
	text, err := p.fetcher.FetchText(ctx, pageURL)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	chunks := ChunkText(text, p.chunkSize)
	crawledAt := time.Now().UTC()

	stored := 0
	for i, content := range chunks {
		title, summary := p.annotate(ctx, pageURL, content)
		embedding := p.embed(ctx, content)

		_, err := p.store.Insert(ctx, types.DocChunk{
			URL:         pageURL,
			ChunkNumber: i,
			Title:       title,
			Summary:     summary,
			Content:     content,
			Metadata: map[string]any{
				"source":     p.source,
				"chunk_size": len(content),
				"crawled_at": crawledAt.Format(time.RFC3339),
			},
			Embedding: embedding,
		})
		if err != nil {
			return stored, fmt.Errorf("store chunk %d: %w", i, err)
		}
		stored++
	}

	p.activities.Record(types.Activity{
		Timestamp: time.Now().UTC(),
		Kind:      types.ActivityCrawledPage,
		Detail:    fmt.Sprintf("%s (%d chunks)", pageURL, stored),
	})
	p.logger.Info("crawled page", "url", pageURL, "chunks", stored)
	return stored, nil
}

// annotate asks the model for a title and summary. Failures fall back to
// fixed placeholders so the chunk is still stored.
func (p *Pipeline) annotate(ctx context.Context, pageURL, content string) (title, summary string) {
	title, summary = fallbackTitle, fallbackSummary
	if p.annotator == nil {
		return title, summary
	}

	// The model only needs the head of the chunk to name it.
	head := content
	if len(head) > 1000 {
		head = head[:1000] + "..."
	}
	prompt := fmt.Sprintf(`Extract a title and summary from this documentation chunk.
The title should identify what this specific section covers.
The summary should capture the main points in one or two sentences.
Return a JSON object with exactly two string keys: "title" and "summary".

URL: %s

Content:
%s`, pageURL, head)

	annotateCtx, cancel := context.WithTimeout(ctx, annotateTimeout)
	defer cancel()

	raw, err := p.annotator.GenerateJSON(annotateCtx, prompt)
	if err != nil {
		p.logger.Warn("title/summary generation failed", "url", pageURL, "err", err)
		return title, summary
	}

	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		p.logger.Warn("title/summary parse failed", "url", pageURL, "err", err)
		return title, summary
	}
	if parsed.Title != "" {
		title = parsed.Title
	}
	if parsed.Summary != "" {
		summary = parsed.Summary
	}
	return title, summary
}

// embed returns the chunk's embedding, or a zero vector when the embedding
// call fails so storage and chunk numbering stay consistent.
func (p *Pipeline) embed(ctx context.Context, content string) []float32 {
	if p.embedder == nil {
		return make([]float32, fallbackEmbeddingDims)
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	embedding, err := p.embedder.Embed(embedCtx, content)
	if err != nil {
		p.logger.Warn("embedding failed", "err", err)
		return make([]float32, fallbackEmbeddingDims)
	}
	return embedding
}
