package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vanillarag/vanillarag/internal/core"
)

const flatSnapshotFile = "flat_index.json"

// FlatStore is a flat in-memory index scored by inner product over
// L2-normalized vectors, which makes the score cosine similarity.
// Records live in parallel slices guarded by one mutex; a search never
// observes vectors and metadata of different lengths.
type FlatStore struct {
	mu        sync.RWMutex
	dimension int
	dataPath  string
	logger    *slog.Logger

	vectors  [][]float32
	texts    []string
	metadata []map[string]any
	ids      []string
}

// flatSnapshot is the single on-disk representation of a FlatStore.
// Keeping vectors and side data in one file means a snapshot is either
// entirely present or entirely absent.
type flatSnapshot struct {
	Dimension int              `json:"dimension"`
	Vectors   [][]float32      `json:"vectors"`
	Texts     []string         `json:"texts"`
	Metadata  []map[string]any `json:"metadata"`
	IDs       []string         `json:"ids"`
}

// NewFlatStore creates a flat store of the given dimension. When
// dataPath is non-empty a prior snapshot is loaded opportunistically:
// a missing or corrupt snapshot logs a warning and starts empty.
func NewFlatStore(dimension int, dataPath string, logger *slog.Logger) (*FlatStore, error) {
	if dimension <= 0 {
		return nil, core.Errorf(core.KindVectorStore, "invalid dimension: %d", dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &FlatStore{
		dimension: dimension,
		dataPath:  dataPath,
		logger:    logger,
	}

	if dataPath != "" {
		if err := s.load(); err != nil {
			logger.Warn("flat_index_load_failed", "path", dataPath, "error", err)
			s.vectors, s.texts, s.metadata, s.ids = nil, nil, nil, nil
		}
	}

	return s, nil
}

// Add normalizes and appends the given records. Ids are generated fresh
// and returned in input order.
func (s *FlatStore) Add(ctx context.Context, texts []string, embeddings [][]float32, metadata []map[string]any) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(embeddings) != len(texts) || len(metadata) != len(texts) {
		return nil, core.Errorf(core.KindVectorStore,
			"mismatched lengths: %d texts, %d embeddings, %d metadata",
			len(texts), len(embeddings), len(metadata))
	}

	normalized := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		if len(emb) != s.dimension {
			return nil, core.Errorf(core.KindVectorStore,
				"embedding %d has dimension %d, index dimension is %d", i, len(emb), s.dimension)
		}
		normalized[i] = normalize(emb)
	}

	ids := make([]string, len(texts))
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.vectors = append(s.vectors, normalized...)
	s.texts = append(s.texts, texts...)
	s.metadata = append(s.metadata, metadata...)
	s.ids = append(s.ids, ids...)

	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	return ids, nil
}

// Search scores the query against every stored vector and returns the
// min(topK, size) best hits by descending score.
func (s *FlatStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, core.Errorf(core.KindVectorStore,
			"query has dimension %d, index dimension is %d", len(queryEmbedding), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}

	query := normalize(queryEmbedding)

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, len(s.vectors))
	for i, vec := range s.vectors {
		all[i] = scored{idx: i, score: dot(query, vec)}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})

	if topK > len(all) {
		topK = len(all)
	}
	if topK < 0 {
		topK = 0
	}

	results := make([]SearchResult, topK)
	for i := 0; i < topK; i++ {
		j := all[i].idx
		results[i] = SearchResult{
			ID:       s.ids[j],
			Text:     s.texts[j],
			Metadata: s.metadata[j],
			Score:    all[i].score,
		}
	}

	return results, nil
}

// DeleteAll replaces the contents with an empty index of the same
// dimension and persists the empty snapshot.
func (s *FlatStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vectors = nil
	s.texts = nil
	s.metadata = nil
	s.ids = nil

	return s.saveLocked()
}

// Save persists the current snapshot.
func (s *FlatStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

// Count returns the number of stored records.
func (s *FlatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Close persists the snapshot before shutdown.
func (s *FlatStore) Close() error {
	return s.Save()
}

// saveLocked writes the snapshot with a temp-file-then-rename so readers
// of the path never see a partially written index.
func (s *FlatStore) saveLocked() error {
	if s.dataPath == "" {
		return nil
	}

	if err := os.MkdirAll(s.dataPath, 0o755); err != nil {
		return core.Errorf(core.KindVectorStore, "failed to create index directory: %w", err)
	}

	snap := flatSnapshot{
		Dimension: s.dimension,
		Vectors:   s.vectors,
		Texts:     s.texts,
		Metadata:  s.metadata,
		IDs:       s.ids,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return core.Errorf(core.KindVectorStore, "failed to marshal index: %w", err)
	}

	target := filepath.Join(s.dataPath, flatSnapshotFile)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return core.Errorf(core.KindVectorStore, "failed to write index: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return core.Errorf(core.KindVectorStore, "failed to replace index: %w", err)
	}

	return nil
}

// load reads a prior snapshot from disk, if one exists.
func (s *FlatStore) load() error {
	data, err := os.ReadFile(filepath.Join(s.dataPath, flatSnapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap flatSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Dimension != s.dimension {
		return fmt.Errorf("snapshot dimension %d does not match index dimension %d",
			snap.Dimension, s.dimension)
	}
	if len(snap.Vectors) != len(snap.Texts) ||
		len(snap.Vectors) != len(snap.Metadata) ||
		len(snap.Vectors) != len(snap.IDs) {
		return fmt.Errorf("snapshot record tables have mismatched lengths")
	}

	s.vectors = snap.Vectors
	s.texts = snap.Texts
	s.metadata = snap.Metadata
	s.ids = snap.IDs

	s.logger.Info("flat_index_loaded", "records", len(s.ids))
	return nil
}

// normalize returns an L2-normalized copy of v. A zero vector is treated
// as having norm 1 to avoid division by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
