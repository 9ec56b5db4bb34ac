// Package crawl implements the documentation-crawling pipeline: sitemap
// discovery, page fetching, chunking, summary and embedding generation.
package crawl

import "strings"

// DefaultChunkSize targets chunks small enough to embed and summarize
// cheaply.
const DefaultChunkSize = 4000

// minBoundary is the fraction of the chunk size below which a natural
// break is ignored; breaking too early produces fragments.
const minBoundary = 0.3

// ChunkText splits text into chunks of roughly chunkSize characters,
// preferring to break at code-block fences, then paragraph breaks, then
// sentence ends.
func ChunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		window := text[start:end]
		threshold := int(float64(chunkSize) * minBoundary)

		if fence := strings.LastIndex(window, "```"); fence != -1 && fence > threshold {
			end = start + fence
		} else if para := strings.LastIndex(window, "\n\n"); para > threshold {
			end = start + para
		} else if sentence := strings.LastIndex(window, ". "); sentence > threshold {
			end = start + sentence + 1
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}
