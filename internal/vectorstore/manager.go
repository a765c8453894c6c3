package vectorstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vanillarag/vanillarag/internal/config"
	"github.com/vanillarag/vanillarag/internal/core"
)

// ErrNotInitialized is returned when a store operation is issued before
// Initialize. This indicates an improperly sequenced call, not a
// recoverable runtime condition.
var ErrNotInitialized = core.NewError(core.KindVectorStore,
	"vector store not initialized: call Initialize first")

// Manager owns backend selection and the index lifecycle. The backend
// and dimension are fixed at Initialize time and live for the process
// lifetime.
type Manager struct {
	cfg    config.VectorConfig
	logger *slog.Logger

	mu    sync.RWMutex
	store Store
}

// NewManager creates an uninitialized manager for the configured backend.
func NewManager(cfg config.VectorConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Initialize constructs the configured backend with the given dimension.
// Construction failure (bad config, unusable storage path) is fatal at
// first use and is not retried here.
func (m *Manager) Initialize(dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return nil
	}

	var (
		store Store
		err   error
	)
	switch m.cfg.Type {
	case "flat":
		store, err = NewFlatStore(dimension, m.cfg.Path, m.logger)
	case "sqlite":
		store, err = NewSQLiteStore(dimension, m.cfg.Path, m.logger)
	default:
		return core.Errorf(core.KindVectorStore, "unknown vector store type: %s", m.cfg.Type)
	}
	if err != nil {
		return err
	}

	m.store = store
	m.logger.Info("vector_store_initialized", "type", m.cfg.Type, "dimension", dimension)
	return nil
}

// Initialized reports whether a backend has been constructed.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store != nil
}

func (m *Manager) get() (Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.store == nil {
		return nil, ErrNotInitialized
	}
	return m.store, nil
}

// Add forwards to the backend's Add.
func (m *Manager) Add(ctx context.Context, texts []string, embeddings [][]float32, metadata []map[string]any) ([]string, error) {
	store, err := m.get()
	if err != nil {
		return nil, err
	}
	return store.Add(ctx, texts, embeddings, metadata)
}

// Search forwards to the backend's Search.
func (m *Manager) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	store, err := m.get()
	if err != nil {
		return nil, err
	}
	return store.Search(ctx, queryEmbedding, topK)
}

// DeleteAll forwards to the backend's DeleteAll.
func (m *Manager) DeleteAll(ctx context.Context) error {
	store, err := m.get()
	if err != nil {
		return err
	}
	return store.DeleteAll(ctx)
}

// Save forwards to the backend's Save.
func (m *Manager) Save() error {
	store, err := m.get()
	if err != nil {
		return err
	}
	return store.Save()
}

// Count returns the backend record count, zero when uninitialized.
func (m *Manager) Count() int {
	store, err := m.get()
	if err != nil {
		return 0
	}
	return store.Count()
}

// Close releases the backend, if constructed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
