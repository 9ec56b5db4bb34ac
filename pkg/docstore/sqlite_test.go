package docstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvaldes/mention-bot/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndGetByURL(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := store.Insert(t.Context(), types.DocChunk{
			URL:         "https://docs.example.com/intro",
			ChunkNumber: i,
			Title:       "Intro",
			Summary:     "Getting started.",
			Content:     "chunk content",
			Metadata:    map[string]any{"source": "docs"},
			Embedding:   []float32{0.1, 0.2, 0.3},
		})
		require.NoError(t, err)
	}

	chunks, err := store.GetByURL(t.Context(), "https://docs.example.com/intro")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].ChunkNumber)
	assert.Equal(t, 2, chunks[2].ChunkNumber)
	assert.NotEmpty(t, chunks[0].ID)
	assert.Equal(t, "docs", chunks[0].Metadata["source"])
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, chunks[0].Embedding)
	assert.WithinDuration(t, time.Now(), chunks[0].CreatedAt, time.Minute)
}

func TestInsertUpsertsOnRecrawl(t *testing.T) {
	store := newTestStore(t)

	chunk := types.DocChunk{
		URL:         "https://docs.example.com/api",
		ChunkNumber: 0,
		Title:       "API",
		Summary:     "old",
		Content:     "old content",
	}
	_, err := store.Insert(t.Context(), chunk)
	require.NoError(t, err)

	chunk.Summary = "new"
	chunk.Content = "new content"
	_, err = store.Insert(t.Context(), chunk)
	require.NoError(t, err)

	chunks, err := store.GetByURL(t.Context(), chunk.URL)
	require.NoError(t, err)
	require.Len(t, chunks, 1, "recrawl must replace, not duplicate")
	assert.Equal(t, "new", chunks[0].Summary)
	assert.Equal(t, "new content", chunks[0].Content)

	n, err := store.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetByURLMissing(t *testing.T) {
	store := newTestStore(t)

	chunks, err := store.GetByURL(t.Context(), "https://docs.example.com/nope")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
