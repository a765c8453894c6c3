package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vanillarag/vanillarag/internal/config"
	"github.com/vanillarag/vanillarag/internal/core"
)

func newTestClient(host string) *Client {
	return NewClient(config.OllamaConfig{
		Host:          host,
		Model:         "test-model",
		ContextLength: 4096,
		Timeout:       5,
	}, "test-embed")
}

func TestGenerate(t *testing.T) {
	var captured ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Model:   "test-model",
			Message: Message{Role: "assistant", Content: "the answer"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	answer, err := c.Generate(context.Background(), "what is it?", "Document 1:\nsome context", "be helpful")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q", answer)
	}

	if captured.Model != "test-model" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.Stream {
		t.Error("non-streaming request must set stream=false")
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "be helpful" {
		t.Errorf("system message = %+v", captured.Messages[0])
	}

	user := captured.Messages[1].Content
	if !strings.HasPrefix(user, "Context:\nDocument 1:\nsome context") {
		t.Errorf("prompt missing context block: %q", user)
	}
	if !strings.Contains(user, "Question: what is it?") {
		t.Errorf("prompt missing question: %q", user)
	}
	if !strings.HasSuffix(user, "Answer:") {
		t.Errorf("prompt missing answer cue: %q", user)
	}
}

func TestGenerateWithoutContext(t *testing.T) {
	var captured ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(ChatResponse{Message: Message{Content: "ok"}, Done: true})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Generate(context.Background(), "plain question", "", ""); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if captured.Messages[1].Content != "plain question" {
		t.Errorf("empty context must leave the prompt untouched, got %q", captured.Messages[1].Content)
	}
}

func TestGenerateBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Generate(context.Background(), "question", "", "")
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
	if !core.IsKind(err, core.KindGeneration) {
		t.Errorf("error kind = %v, want generation", err)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ChatResponse{Message: Message{Content: "hel"}})
		enc.Encode(ChatResponse{Message: Message{Content: "lo"}})
		enc.Encode(ChatResponse{Done: true})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	var parts []string
	var sawDone bool
	err := c.GenerateStream(context.Background(), "question", "", "", func(content string, done bool) error {
		if content != "" {
			parts = append(parts, content)
		}
		if done {
			sawDone = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	if got := strings.Join(parts, ""); got != "hello" {
		t.Errorf("streamed content = %q, want %q", got, "hello")
	}
	if !sawDone {
		t.Error("handler never saw the done marker")
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-embed" {
			t.Errorf("embedding model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(EmbeddingResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	vec, err := c.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("embedding dimension = %d, want 3", len(vec))
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(EmbeddingResponse{Embedding: []float32{float32(len(req.Prompt))}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, want := range []float32{1, 2, 3} {
		if vectors[i][0] != want {
			t.Errorf("vector %d = %v, want [%v]", i, vectors[i], want)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth failed: %v", err)
	}

	srv.Close()
	if err := c.CheckHealth(context.Background()); err == nil {
		t.Error("CheckHealth must fail when the backend is down")
	}
}
