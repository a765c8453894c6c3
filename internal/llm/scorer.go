package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ScorerClient is a client for the cross-encoder scoring service, which
// hosts the reranker model and scores query/document pairs jointly.
type ScorerClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// ScoreRequest represents a pair-scoring request
type ScoreRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// ScoreResponse represents a pair-scoring response
type ScoreResponse struct {
	Scores []float64 `json:"scores"`
	Count  int       `json:"count"`
}

// ScorerHealthResponse represents a health check response
type ScorerHealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Device string `json:"device"`
}

// NewScorerClient creates a new scoring service client
func NewScorerClient(host, model string) *ScorerClient {
	return &ScorerClient{
		host:  host,
		model: model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CheckHealth checks if the scoring service is healthy
func (c *ScorerClient) CheckHealth(ctx context.Context) (*ScorerHealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.host+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring service not accessible at %s: %w", c.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var health ScorerHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &health, nil
}

// Ready reports whether the scoring service is reachable with its model
// loaded.
func (c *ScorerClient) Ready(ctx context.Context) error {
	_, err := c.CheckHealth(ctx)
	return err
}

// Score returns one relevance score per document, each computed over the
// (query, document) pair, in the same order as documents.
func (c *ScorerClient) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	reqBody := ScoreRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.host+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scoring failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var scoreResp ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&scoreResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(scoreResp.Scores) != len(documents) {
		return nil, fmt.Errorf("scoring service returned %d scores for %d documents",
			len(scoreResp.Scores), len(documents))
	}

	return scoreResp.Scores, nil
}

// ModelName returns the reranker model name
func (c *ScorerClient) ModelName() string {
	return c.model
}
