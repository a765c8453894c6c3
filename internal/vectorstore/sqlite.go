package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/vanillarag/vanillarag/internal/core"
)

const chunksSchema = `
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    meta TEXT NOT NULL,
    embedding BLOB NOT NULL
);
`

// SQLiteStore is a persistent collection store backed by SQLite. Rows
// persist on commit, so Save is a no-op. Scores are cosine similarity
// obtained from the backend's cosine distance as 1 - distance.
type SQLiteStore struct {
	mu        sync.Mutex
	db        *sql.DB
	dimension int
	logger    *slog.Logger
}

// NewSQLiteStore opens (or creates) the collection database under
// dataPath and ensures the schema exists.
func NewSQLiteStore(dimension int, dataPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dimension <= 0 {
		return nil, core.Errorf(core.KindVectorStore, "invalid dimension: %d", dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := ":memory:"
	if dataPath != "" {
		if err := os.MkdirAll(dataPath, 0o755); err != nil {
			return nil, core.Errorf(core.KindVectorStore, "failed to create store directory: %w", err)
		}
		dsn = filepath.Join(dataPath, "chunks.sqlite")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.Errorf(core.KindVectorStore, "failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(chunksSchema); err != nil {
		db.Close()
		return nil, core.Errorf(core.KindVectorStore, "failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dimension: dimension, logger: logger}, nil
}

// Add inserts records in one transaction so a failed ingest never leaves
// a partial batch behind.
func (s *SQLiteStore) Add(ctx context.Context, texts []string, embeddings [][]float32, metadata []map[string]any) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(embeddings) != len(texts) || len(metadata) != len(texts) {
		return nil, core.Errorf(core.KindVectorStore,
			"mismatched lengths: %d texts, %d embeddings, %d metadata",
			len(texts), len(embeddings), len(metadata))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.Errorf(core.KindVectorStore, "failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks(id, content, meta, embedding) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return nil, core.Errorf(core.KindVectorStore, "failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(texts))
	for i, text := range texts {
		if len(embeddings[i]) != s.dimension {
			return nil, core.Errorf(core.KindVectorStore,
				"embedding %d has dimension %d, store dimension is %d",
				i, len(embeddings[i]), s.dimension)
		}

		meta, err := json.Marshal(coerceMetadata(metadata[i]))
		if err != nil {
			return nil, core.Errorf(core.KindVectorStore, "failed to encode metadata: %w", err)
		}

		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, id, text, string(meta), encodeEmbedding(embeddings[i])); err != nil {
			return nil, core.Errorf(core.KindVectorStore, "failed to insert record: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, core.Errorf(core.KindVectorStore, "failed to commit insert: %w", err)
	}

	return ids, nil
}

// Search scans the collection and returns the min(topK, size) records
// with the smallest cosine distance to the query, reported as
// similarity = 1 - distance so higher remains better.
func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, core.Errorf(core.KindVectorStore,
			"query has dimension %d, store dimension is %d", len(queryEmbedding), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, meta, embedding FROM chunks`)
	if err != nil {
		return nil, core.Errorf(core.KindVectorStore, "failed to query records: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			id, content, meta string
			blob              []byte
		)
		if err := rows.Scan(&id, &content, &meta, &blob); err != nil {
			return nil, core.Errorf(core.KindVectorStore, "failed to scan record: %w", err)
		}

		emb, err := decodeEmbedding(blob)
		if err != nil {
			return nil, core.Errorf(core.KindVectorStore, "corrupt embedding for record %s: %w", id, err)
		}

		var metadata map[string]any
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			return nil, core.Errorf(core.KindVectorStore, "corrupt metadata for record %s: %w", id, err)
		}

		distance := cosineDistance(queryEmbedding, emb)
		results = append(results, SearchResult{
			ID:       id,
			Text:     content,
			Metadata: metadata,
			Score:    1 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, core.Errorf(core.KindVectorStore, "failed to iterate records: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}

// DeleteAll removes every record in a single statement.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return core.Errorf(core.KindVectorStore, "failed to clear collection: %w", err)
	}
	return nil
}

// Save is a no-op: SQLite persists on commit.
func (s *SQLiteStore) Save() error {
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// coerceMetadata keeps primitive values (string, number, bool) and
// stringifies everything else, since the collection stores metadata as
// flat JSON of primitives.
func coerceMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		switch v.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = v
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// encodeEmbedding packs float32 values as a little-endian BLOB; the
// length is derived from the BLOB size on decode.
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// decodeEmbedding unpacks a BLOB produced by encodeEmbedding.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// cosineDistance returns 1 - cosine similarity. Vectors with zero
// magnitude compare as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}
