// Package reranker rescores retrieval candidates against a query with a
// cross-encoder model. Scoring each (query, document) pair jointly is
// more accurate than embedding similarity, so it runs only over the
// bounded candidate set produced by the initial retrieval.
package reranker

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/vanillarag/vanillarag/internal/core"
)

// Scorer produces one relevance score per document for a query, scoring
// each pair jointly.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
	Ready(ctx context.Context) error
	ModelName() string
}

// Candidate points back into the input document slice together with the
// cross-encoder relevance score.
type Candidate struct {
	Index int     // position in the input documents
	Score float64 // relevance, higher is better
}

// Reranker orders candidate documents by cross-encoder relevance. The
// scoring model is contacted lazily; a failed readiness check is not
// cached and the next call retries.
type Reranker struct {
	scorer      Scorer
	defaultTopK int
	logger      *slog.Logger

	mu    sync.Mutex
	ready bool
}

// New creates a reranker with the given default top-k.
func New(scorer Scorer, defaultTopK int, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{scorer: scorer, defaultTopK: defaultTopK, logger: logger}
}

func (r *Reranker) ensureReady(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	if err := r.scorer.Ready(ctx); err != nil {
		return core.Errorf(core.KindReranker, "failed to load reranker model: %w", err)
	}
	r.ready = true
	r.logger.Info("reranker_model_loaded", "model", r.scorer.ModelName())
	return nil
}

// Rerank scores every document against the query and returns candidates
// sorted by descending score, truncated to topK (the configured default
// when topK <= 0). Ties are broken by ascending original index. An empty
// document slice returns no candidates without contacting the model.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Candidate, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	if err := r.ensureReady(ctx); err != nil {
		return nil, err
	}

	scores, err := r.scorer.Score(ctx, query, documents)
	if err != nil {
		return nil, core.Errorf(core.KindReranker, "failed to rerank documents: %w", err)
	}
	if len(scores) != len(documents) {
		return nil, core.Errorf(core.KindReranker,
			"scorer returned %d scores for %d documents", len(scores), len(documents))
	}

	candidates := make([]Candidate, len(documents))
	for i, score := range scores {
		candidates[i] = Candidate{Index: i, Score: score}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Index < candidates[j].Index
	})

	if topK < len(candidates) {
		candidates = candidates[:topK]
	}

	return candidates, nil
}
