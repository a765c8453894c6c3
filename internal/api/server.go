package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vanillarag/vanillarag/internal/config"
	"github.com/vanillarag/vanillarag/internal/rag"
)

// Server exposes the RAG service over HTTP.
type Server struct {
	config  *config.Config
	service *rag.Service
	router  *gin.Engine
	logger  *slog.Logger
}

// NewServer creates the HTTP server around an already constructed
// service.
func NewServer(cfg *config.Config, service *rag.Service, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		service: service,
		router:  gin.New(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/ingest", s.handleIngest)
		v1.POST("/query", s.handleQuery)
		v1.POST("/reset", s.handleReset)
		v1.GET("/documents", s.handleDocuments)
	}
}

// Run starts the server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("server_starting", "addr", addr)
	return s.router.Run(addr)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "vanillarag",
		"version": "0.1.0",
	})
}

// handleReady reports dependency health for orchestration.
func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := s.service.Health(ctx)
	c.JSON(http.StatusOK, gin.H{
		"ready":                        health.GenerationBackendReachable,
		"status":                       health.Status,
		"generation_backend_reachable": health.GenerationBackendReachable,
		"vector_store_initialized":     health.VectorStoreInitialized,
	})
}

// handleIngest accepts a multipart file upload and ingests it.
func (s *Server) handleIngest(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no filename provided"})
		return
	}
	if !s.service.IsSupported(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unsupported file type: %s", fileHeader.Filename),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	result := s.service.Ingest(c.Request.Context(), content, fileHeader.Filename)
	if result.Status == "error" {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// QueryRequest is the body for the query endpoint.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// handleQuery answers a question over the ingested corpus.
func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.service.Query(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleReset clears the vector store index.
func (s *Server) handleReset(c *gin.Context) {
	result, err := s.service.Reset(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleDocuments lists ingested documents.
func (s *Server) handleDocuments(c *gin.Context) {
	docs := s.service.Documents()
	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}
