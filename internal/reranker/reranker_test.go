package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/vanillarag/vanillarag/internal/core"
)

type fakeScorer struct {
	scores     []float64
	scoreErr   error
	readyErr   error
	scoreCalls int
	readyCalls int
}

func (f *fakeScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	f.scoreCalls++
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	return f.scores, nil
}

func (f *fakeScorer) Ready(ctx context.Context) error {
	f.readyCalls++
	return f.readyErr
}

func (f *fakeScorer) ModelName() string { return "fake-cross-encoder" }

func TestRerankOrdering(t *testing.T) {
	ctx := context.Background()
	scorer := &fakeScorer{scores: []float64{0.2, 0.9, 0.5}}
	r := New(scorer, 3, nil)

	candidates, err := r.Rerank(ctx, "query", []string{"a", "b", "c"}, 3)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	wantIndices := []int{1, 2, 0}
	if len(candidates) != len(wantIndices) {
		t.Fatalf("expected %d candidates, got %d", len(wantIndices), len(candidates))
	}
	for i, c := range candidates {
		if c.Index != wantIndices[i] {
			t.Errorf("candidate %d has index %d, want %d", i, c.Index, wantIndices[i])
		}
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i-1].Score < candidates[i].Score {
			t.Errorf("scores not descending at %d: %v < %v", i, candidates[i-1].Score, candidates[i].Score)
		}
	}
}

func TestRerankTieBreakByOriginalIndex(t *testing.T) {
	ctx := context.Background()
	scorer := &fakeScorer{scores: []float64{0.5, 0.5, 0.9, 0.5}}
	r := New(scorer, 4, nil)

	candidates, err := r.Rerank(ctx, "query", []string{"a", "b", "c", "d"}, 4)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	wantIndices := []int{2, 0, 1, 3}
	for i, c := range candidates {
		if c.Index != wantIndices[i] {
			t.Errorf("candidate %d has index %d, want %d", i, c.Index, wantIndices[i])
		}
	}
}

func TestRerankTruncation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		topK    int
		wantLen int
	}{
		{"topK below size", 2, 2},
		{"topK equals size", 3, 3},
		{"topK beyond size", 10, 3},
		{"topK zero uses default", 0, 2},
		{"topK negative uses default", -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &fakeScorer{scores: []float64{0.1, 0.2, 0.3}}
			r := New(scorer, 2, nil)

			candidates, err := r.Rerank(ctx, "query", []string{"a", "b", "c"}, tt.topK)
			if err != nil {
				t.Fatalf("Rerank failed: %v", err)
			}
			if len(candidates) != tt.wantLen {
				t.Errorf("got %d candidates, want %d", len(candidates), tt.wantLen)
			}
		})
	}
}

func TestRerankEmptyDocuments(t *testing.T) {
	scorer := &fakeScorer{}
	r := New(scorer, 3, nil)

	candidates, err := r.Rerank(context.Background(), "query", nil, 3)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
	if scorer.readyCalls != 0 || scorer.scoreCalls != 0 {
		t.Error("empty input must not contact the scoring model")
	}
}

func TestRerankScoreCountMismatch(t *testing.T) {
	scorer := &fakeScorer{scores: []float64{0.1}}
	r := New(scorer, 3, nil)

	_, err := r.Rerank(context.Background(), "query", []string{"a", "b"}, 2)
	if err == nil {
		t.Fatal("expected error for score count mismatch")
	}
	if !core.IsKind(err, core.KindReranker) {
		t.Errorf("error kind = %v, want reranker", err)
	}
}

func TestRerankReadinessRetriedAfterFailure(t *testing.T) {
	ctx := context.Background()
	scorer := &fakeScorer{scores: []float64{0.5}, readyErr: errors.New("model loading")}
	r := New(scorer, 1, nil)

	if _, err := r.Rerank(ctx, "query", []string{"a"}, 1); err == nil {
		t.Fatal("expected readiness failure")
	} else if !core.IsKind(err, core.KindReranker) {
		t.Errorf("error kind = %v, want reranker", err)
	}

	// The failure is not cached: the next call checks again and succeeds.
	scorer.readyErr = nil
	if _, err := r.Rerank(ctx, "query", []string{"a"}, 1); err != nil {
		t.Fatalf("Rerank after recovery failed: %v", err)
	}
	if scorer.readyCalls != 2 {
		t.Errorf("readiness checked %d times, want 2", scorer.readyCalls)
	}

	// Success is memoized.
	if _, err := r.Rerank(ctx, "query", []string{"a"}, 1); err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if scorer.readyCalls != 2 {
		t.Errorf("readiness re-checked after success, %d calls", scorer.readyCalls)
	}
}
