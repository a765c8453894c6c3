// Package vectorstore stores (vector, text, metadata) records and serves
// similarity search over them. Two backends implement the same contract:
// a flat in-memory index with snapshot persistence and a SQLite-backed
// collection store.
package vectorstore

import "context"

// SearchResult is one similarity-search hit. Score units are
// backend-dependent, but higher is always more similar.
type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Store is the uniform contract over vector storage backends.
type Store interface {
	// Add appends records and returns one fresh id per input, in order.
	// Empty input is a no-op returning no ids.
	Add(ctx context.Context, texts []string, embeddings [][]float32, metadata []map[string]any) ([]string, error)

	// Search returns the top-k most similar records, ordered by
	// descending score. An empty index returns no results.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error)

	// DeleteAll atomically replaces the index with an empty one of the
	// same dimension.
	DeleteAll(ctx context.Context) error

	// Save persists the index. Idempotent; a no-op for backends that
	// persist automatically.
	Save() error

	// Count returns the number of stored records.
	Count() int

	// Close releases backend resources.
	Close() error
}
