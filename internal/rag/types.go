package rag

import "time"

// IngestResult reports the outcome of one document ingestion. Failures
// are carried in Status/Message rather than an error so one bad document
// cannot crash the service.
type IngestResult struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"` // success, error
	Message    string `json:"message"`
}

// Source is a citation backing an answer: a retrieved chunk with its
// reranked score and 1-based rank position.
type Source struct {
	ChunkID  string  `json:"chunk_id"`
	DocID    string  `json:"doc_id"`
	Filename string  `json:"filename"`
	Content  string  `json:"content"` // truncated to 500 chars
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// QueryResult is the answer to one query together with its sources.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Query   string   `json:"query"`
	Model   string   `json:"model"`
}

// ResetResult reports the outcome of an index reset.
type ResetResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports service health for readiness probes.
type Health struct {
	Status                     string `json:"status"` // healthy, degraded
	GenerationBackendReachable bool   `json:"generation_backend_reachable"`
	VectorStoreInitialized     bool   `json:"vector_store_initialized"`
}

// DocumentInfo describes one ingested document in the registry.
type DocumentInfo struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}
