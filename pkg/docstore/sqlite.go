// Package docstore persists crawled documentation chunks in SQLite.
// Similarity search over the stored embeddings is intentionally not
// implemented here; the store only guarantees durable, re-crawlable rows.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/pvaldes/mention-bot/pkg/types"
)

// SQLiteStore stores documentation chunks.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Open opens or creates the chunk database at dbPath.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS site_pages (
		id           TEXT PRIMARY KEY,
		url          TEXT NOT NULL,
		chunk_number INTEGER NOT NULL,
		title        TEXT NOT NULL,
		summary      TEXT NOT NULL,
		content      TEXT NOT NULL,
		metadata     TEXT,
		embedding    TEXT,
		created_at   TEXT NOT NULL,
		UNIQUE(url, chunk_number)
	);
	CREATE INDEX IF NOT EXISTS idx_site_pages_url ON site_pages(url);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Insert upserts one chunk, keyed by (url, chunk_number) so a re-crawl
// replaces stale content.
func (s *SQLiteStore) Insert(ctx context.Context, chunk types.DocChunk) (string, error) {
	if chunk.ID == "" {
		chunk.ID = s.newID()
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	embedding, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO site_pages (id, url, chunk_number, title, summary, content, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url, chunk_number) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			created_at = excluded.created_at`,
		chunk.ID, chunk.URL, chunk.ChunkNumber, chunk.Title, chunk.Summary,
		chunk.Content, string(metadata), string(embedding), chunk.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert chunk: %w", err)
	}
	return chunk.ID, nil
}

// GetByURL returns all chunks for a URL in chunk order.
func (s *SQLiteStore) GetByURL(ctx context.Context, url string) ([]types.DocChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, chunk_number, title, summary, content, metadata, embedding, created_at
		FROM site_pages WHERE url = ? ORDER BY chunk_number`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.DocChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM site_pages`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanChunk(rows *sql.Rows) (types.DocChunk, error) {
	var (
		chunk               types.DocChunk
		metadata, embedding sql.NullString
		createdAt           string
	)
	if err := rows.Scan(&chunk.ID, &chunk.URL, &chunk.ChunkNumber, &chunk.Title,
		&chunk.Summary, &chunk.Content, &metadata, &embedding, &createdAt); err != nil {
		return types.DocChunk{}, err
	}
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &chunk.Metadata); err != nil {
			return types.DocChunk{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if embedding.Valid && embedding.String != "" && embedding.String != "null" {
		if err := json.Unmarshal([]byte(embedding.String), &chunk.Embedding); err != nil {
			return types.DocChunk{}, fmt.Errorf("decode embedding: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		chunk.CreatedAt = t
	}
	return chunk, nil
}
