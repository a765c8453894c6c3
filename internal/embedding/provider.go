package embedding

import (
	"context"

	"github.com/vanillarag/vanillarag/internal/llm"
)

// Provider is the interface for embedding backends
type Provider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// CheckHealth checks if the backend is reachable
	CheckHealth(ctx context.Context) error

	// Name returns the provider name
	Name() string
}

// OllamaProvider wraps the Ollama client as an embedding provider
type OllamaProvider struct {
	client *llm.Client
}

// NewOllamaProvider creates a new Ollama embedding provider
func NewOllamaProvider(client *llm.Client) *OllamaProvider {
	return &OllamaProvider{client: client}
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.client.Embed(ctx, text)
}

func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.client.EmbedBatch(ctx, texts)
}

func (p *OllamaProvider) CheckHealth(ctx context.Context) error {
	return p.client.CheckHealth(ctx)
}

func (p *OllamaProvider) Name() string {
	return "ollama/" + p.client.EmbeddingModelName()
}
