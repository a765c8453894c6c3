package embedding

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vanillarag/vanillarag/internal/core"
)

// dimensionProbe is the text embedded once to discover the vector
// dimension of the configured model.
const dimensionProbe = "dimension probe"

// Embedder maps text to fixed-dimension dense vectors. The backing model
// is contacted lazily: the first call that needs it discovers and caches
// the vector dimension. A failed probe is not cached, so the next call
// retries.
type Embedder struct {
	provider Provider
	logger   *slog.Logger

	mu        sync.Mutex
	dimension int // 0 until the model has been reached
}

// NewEmbedder creates an embedder on top of the given provider.
func NewEmbedder(provider Provider, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{provider: provider, logger: logger}
}

// Dimension returns the embedding dimension, probing the model on first
// use. The dimension is fixed for the lifetime of the process once known.
func (e *Embedder) Dimension(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensionLocked(ctx)
}

func (e *Embedder) dimensionLocked(ctx context.Context) (int, error) {
	if e.dimension > 0 {
		return e.dimension, nil
	}

	vec, err := e.provider.Embed(ctx, dimensionProbe)
	if err != nil {
		return 0, core.Errorf(core.KindEmbedding, "failed to load embedding model: %w", err)
	}
	if len(vec) == 0 {
		return 0, core.NewError(core.KindEmbedding, "embedding model returned an empty vector")
	}

	e.dimension = len(vec)
	e.logger.Info("embedding_model_loaded",
		"provider", e.provider.Name(),
		"dimension", e.dimension)
	return e.dimension, nil
}

// Embed generates one embedding per input text, in order. An empty input
// returns an empty result without contacting the model. Every returned
// vector has exactly the probed dimension; a mismatch is a fatal backend
// inconsistency surfaced as an embedding error.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, core.Errorf(core.KindEmbedding, "failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, core.Errorf(core.KindEmbedding,
			"embedding backend returned %d vectors for %d texts", len(vectors), len(texts))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimension == 0 && len(vectors[0]) > 0 {
		e.dimension = len(vectors[0])
		e.logger.Info("embedding_model_loaded",
			"provider", e.provider.Name(),
			"dimension", e.dimension)
	}
	for i, vec := range vectors {
		if len(vec) != e.dimension {
			return nil, core.Errorf(core.KindEmbedding,
				"embedding %d has dimension %d, expected %d", i, len(vec), e.dimension)
		}
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, core.NewError(core.KindEmbedding, "no embedding produced for query")
	}
	return vectors[0], nil
}

// CheckHealth reports whether the embedding backend is reachable.
func (e *Embedder) CheckHealth(ctx context.Context) error {
	return e.provider.CheckHealth(ctx)
}
