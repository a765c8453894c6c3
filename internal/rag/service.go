// Package rag composes the chunker, embedder, vector store, reranker and
// generation backend into the ingest and query pipelines.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanillarag/vanillarag/internal/config"
	"github.com/vanillarag/vanillarag/internal/core"
	"github.com/vanillarag/vanillarag/internal/embedding"
	"github.com/vanillarag/vanillarag/internal/extract"
	"github.com/vanillarag/vanillarag/internal/reranker"
	"github.com/vanillarag/vanillarag/internal/splitter"
	"github.com/vanillarag/vanillarag/internal/vectorstore"
)

// maxSourceChars bounds the content shown in a source citation.
const maxSourceChars = 500

// Generator is the external generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt, contextText, systemPrompt string) (string, error)
	CheckHealth(ctx context.Context) error
	ModelName() string
}

// Service orchestrates ingest, query, reset and health. It moves from
// uninitialized to initialized exactly once, on the first operation that
// needs the vector store; the transition reads the embedder's dimension.
type Service struct {
	cfg       *config.Config
	extractor extract.Extractor
	splitter  *splitter.Splitter
	embedder  *embedding.Embedder
	reranker  *reranker.Reranker
	store     *vectorstore.Manager
	generator Generator
	logger    *slog.Logger

	initMu      sync.Mutex
	initialized bool

	docsMu    sync.RWMutex
	documents []DocumentInfo
}

// NewService wires the pipeline components together. All dependencies
// are passed explicitly; the composition root owns construction.
func NewService(
	cfg *config.Config,
	extractor extract.Extractor,
	split *splitter.Splitter,
	embedder *embedding.Embedder,
	rerank *reranker.Reranker,
	store *vectorstore.Manager,
	generator Generator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		splitter:  split,
		embedder:  embedder,
		reranker:  rerank,
		store:     store,
		generator: generator,
		logger:    logger,
	}
}

// ensureInitialized performs the one-way uninitialized -> initialized
// transition: probe the embedding dimension, then construct the vector
// store with it.
func (s *Service) ensureInitialized(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		return nil
	}

	dimension, err := s.embedder.Dimension(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Initialize(dimension); err != nil {
		return err
	}

	s.initialized = true
	s.logger.Info("rag_service_initialized", "embedding_dim", dimension)
	return nil
}

// Ingest runs extract -> split -> embed -> add for one document. Every
// failure is downgraded to a typed error result; the vector store is
// written once, only after all embeddings succeeded, so a failed ingest
// never partially commits.
func (s *Service) Ingest(ctx context.Context, content []byte, filename string) IngestResult {
	docID := uuid.NewString()

	fail := func(err error) IngestResult {
		s.logger.Error("ingestion_failed", "filename", filename, "error", err)
		return IngestResult{
			DocID:    docID,
			Filename: filename,
			Status:   "error",
			Message:  fmt.Sprintf("failed to ingest %s: %v", filename, err),
		}
	}

	if err := s.ensureInitialized(ctx); err != nil {
		return fail(err)
	}

	text, docType, err := s.extractor.Extract(content, filename)
	if err != nil {
		return fail(err)
	}

	chunks := s.splitter.Split(text, splitter.Metadata{
		DocID:    docID,
		Filename: filename,
		DocType:  docType,
	})
	if len(chunks) == 0 {
		return IngestResult{
			DocID:    docID,
			Filename: filename,
			Status:   "error",
			Message:  "no chunks generated from document",
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fail(err)
	}

	metadata := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		metadata[i] = map[string]any{
			"doc_id":      c.DocID,
			"filename":    c.Filename,
			"chunk_index": c.Index,
			"chunk_total": c.Total,
		}
	}

	if _, err := s.store.Add(ctx, texts, embeddings, metadata); err != nil {
		return fail(err)
	}

	s.registerDocument(DocumentInfo{
		DocID:      docID,
		Filename:   filename,
		ChunkCount: len(chunks),
		IngestedAt: time.Now(),
	})

	s.logger.Info("document_ingested",
		"doc_id", docID, "filename", filename, "chunks", len(chunks))

	return IngestResult{
		DocID:      docID,
		Filename:   filename,
		ChunkCount: len(chunks),
		Status:     "success",
		Message:    fmt.Sprintf("successfully ingested %s into %d chunks", filename, len(chunks)),
	}
}

// Query answers a question: embed, retrieve, rerank, assemble context,
// generate, cite. topK overrides the configured rerank size when
// positive. Generation failures propagate; every earlier stage failing
// also fails the request, and an empty retrieval short-circuits to a
// canned answer without calling the generation backend.
func (s *Service) Query(ctx context.Context, query string, topK int) (*QueryResult, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("processing_query", "query", query)

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	initial, err := s.store.Search(ctx, queryEmbedding, s.cfg.Retrieval.TopKRetrieve)
	if err != nil {
		return nil, err
	}

	if len(initial) == 0 {
		return &QueryResult{
			Answer:  InsufficientAnswer,
			Sources: []Source{},
			Query:   query,
			Model:   s.generator.ModelName(),
		}, nil
	}

	documents := make([]string, len(initial))
	for i, r := range initial {
		documents[i] = r.Text
	}

	candidates, err := s.reranker.Rerank(ctx, query, documents, topK)
	if err != nil {
		return nil, err
	}

	contextText := assembleContext(initial, candidates)

	answer, err := s.generator.Generate(ctx, query, contextText, SystemPrompt)
	if err != nil {
		s.logger.Error("generation_failed", "error", err)
		if core.IsKind(err, core.KindGeneration) {
			return nil, err
		}
		return nil, core.Errorf(core.KindGeneration, "failed to generate answer: %w", err)
	}

	sources := make([]Source, len(candidates))
	for i, cand := range candidates {
		result := initial[cand.Index]
		sources[i] = Source{
			ChunkID:  result.ID,
			DocID:    metaString(result.Metadata, "doc_id"),
			Filename: metaString(result.Metadata, "filename"),
			Content:  truncate(result.Text, maxSourceChars),
			Score:    cand.Score,
			Rank:     i + 1,
		}
	}

	s.logger.Info("query_completed",
		"query", query, "sources", len(sources), "answer_length", len(answer))

	return &QueryResult{
		Answer:  answer,
		Sources: sources,
		Query:   query,
		Model:   s.generator.ModelName(),
	}, nil
}

// Reset clears the vector store and the document registry.
func (s *Service) Reset(ctx context.Context) (*ResetResult, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	if err := s.store.DeleteAll(ctx); err != nil {
		return nil, err
	}

	s.docsMu.Lock()
	s.documents = nil
	s.docsMu.Unlock()

	s.logger.Info("vector_store_reset")

	return &ResetResult{Status: "success", Message: "vector store index cleared"}, nil
}

// Health reports generation backend reachability and vector store state.
func (s *Service) Health(ctx context.Context) Health {
	reachable := s.generator.CheckHealth(ctx) == nil

	status := "healthy"
	if !reachable {
		status = "degraded"
	}

	return Health{
		Status:                     status,
		GenerationBackendReachable: reachable,
		VectorStoreInitialized:     s.store.Initialized(),
	}
}

// Documents lists the ingested documents.
func (s *Service) Documents() []DocumentInfo {
	s.docsMu.RLock()
	defer s.docsMu.RUnlock()

	out := make([]DocumentInfo, len(s.documents))
	copy(out, s.documents)
	return out
}

// IsSupported reports whether the extractor handles the filename.
func (s *Service) IsSupported(filename string) bool {
	return s.extractor.IsSupported(filename)
}

// Close releases the vector store.
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) registerDocument(info DocumentInfo) {
	s.docsMu.Lock()
	defer s.docsMu.Unlock()
	s.documents = append(s.documents, info)
}

// assembleContext concatenates the reranked documents in rank order,
// each labeled with its 1-based position.
func assembleContext(initial []vectorstore.SearchResult, candidates []reranker.Candidate) string {
	parts := make([]string, len(candidates))
	for i, cand := range candidates {
		parts[i] = fmt.Sprintf("Document %d:\n%s", i+1, initial[cand.Index].Text)
	}
	return strings.Join(parts, "\n\n")
}

// truncate limits text to max characters, appending an ellipsis when cut.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// metaString reads a string metadata value, defaulting to "unknown".
func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
