package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/vanillarag/vanillarag/internal/core"
)

type fakeProvider struct {
	dimension  int
	embedErr   error
	healthErr  error
	embedCalls int
	batchCalls int

	// vectors overrides the generated batch output when non-nil.
	vectors [][]float32
}

func (p *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.embedCalls++
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	return make([]float32, p.dimension), nil
}

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.batchCalls++
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	if p.vectors != nil {
		return p.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, p.dimension)
	}
	return out, nil
}

func (p *fakeProvider) CheckHealth(ctx context.Context) error { return p.healthErr }

func (p *fakeProvider) Name() string { return "fake" }

func TestDimensionProbedOnceOnSuccess(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{dimension: 8}
	e := NewEmbedder(provider, nil)

	dim, err := e.Dimension(ctx)
	if err != nil {
		t.Fatalf("Dimension failed: %v", err)
	}
	if dim != 8 {
		t.Errorf("dimension = %d, want 8", dim)
	}

	if _, err := e.Dimension(ctx); err != nil {
		t.Fatalf("second Dimension failed: %v", err)
	}
	if provider.embedCalls != 1 {
		t.Errorf("model probed %d times, want 1", provider.embedCalls)
	}
}

func TestDimensionProbeFailureRetried(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{dimension: 8, embedErr: errors.New("model unavailable")}
	e := NewEmbedder(provider, nil)

	if _, err := e.Dimension(ctx); err == nil {
		t.Fatal("expected probe failure")
	} else if !core.IsKind(err, core.KindEmbedding) {
		t.Errorf("error kind = %v, want embedding", err)
	}

	// Failure is not cached: after the backend recovers the probe runs
	// again and succeeds.
	provider.embedErr = nil
	dim, err := e.Dimension(ctx)
	if err != nil {
		t.Fatalf("Dimension after recovery failed: %v", err)
	}
	if dim != 8 {
		t.Errorf("dimension = %d, want 8", dim)
	}
	if provider.embedCalls != 2 {
		t.Errorf("model probed %d times, want 2", provider.embedCalls)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	provider := &fakeProvider{dimension: 8}
	e := NewEmbedder(provider, nil)

	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if vectors == nil || len(vectors) != 0 {
		t.Errorf("expected empty non-nil result, got %v", vectors)
	}
	if provider.batchCalls != 0 || provider.embedCalls != 0 {
		t.Error("empty input must not contact the model")
	}
}

func TestEmbedBatch(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{dimension: 4}
	e := NewEmbedder(provider, nil)

	vectors, err := e.Embed(ctx, []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != 4 {
			t.Errorf("vector %d has dimension %d, want 4", i, len(vec))
		}
	}

	// The first successful batch fixes the dimension without a separate
	// probe call.
	dim, err := e.Dimension(ctx)
	if err != nil {
		t.Fatalf("Dimension failed: %v", err)
	}
	if dim != 4 {
		t.Errorf("dimension = %d, want 4", dim)
	}
	if provider.embedCalls != 0 {
		t.Errorf("probe issued despite known dimension, %d calls", provider.embedCalls)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	provider := &fakeProvider{
		dimension: 4,
		vectors:   [][]float32{make([]float32, 4), make([]float32, 3)},
	}
	e := NewEmbedder(provider, nil)

	_, err := e.Embed(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !core.IsKind(err, core.KindEmbedding) {
		t.Errorf("error kind = %v, want embedding", err)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	provider := &fakeProvider{
		dimension: 4,
		vectors:   [][]float32{make([]float32, 4)},
	}
	e := NewEmbedder(provider, nil)

	_, err := e.Embed(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatal("expected vector count mismatch error")
	}
}

func TestEmbedQuery(t *testing.T) {
	provider := &fakeProvider{dimension: 4}
	e := NewEmbedder(provider, nil)

	vec, err := e.EmbedQuery(context.Background(), "what is this about?")
	if err != nil {
		t.Fatalf("EmbedQuery failed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("query vector has dimension %d, want 4", len(vec))
	}
}
