package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vanillarag/vanillarag/internal/api"
	"github.com/vanillarag/vanillarag/internal/config"
	"github.com/vanillarag/vanillarag/internal/embedding"
	"github.com/vanillarag/vanillarag/internal/extract"
	"github.com/vanillarag/vanillarag/internal/llm"
	"github.com/vanillarag/vanillarag/internal/rag"
	"github.com/vanillarag/vanillarag/internal/reranker"
	"github.com/vanillarag/vanillarag/internal/splitter"
	"github.com/vanillarag/vanillarag/internal/vectorstore"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "vanillarag",
		Short: "Local RAG service: ingest documents, retrieve, rerank and answer",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe is the composition root: it constructs every component
// explicitly and hands them to the service.
func runServe() error {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ollama := llm.NewClient(cfg.Ollama, cfg.Embedding.Model)
	scorer := llm.NewScorerClient(cfg.Reranker.Host, cfg.Reranker.Model)

	embedder := embedding.NewEmbedder(embedding.NewOllamaProvider(ollama), logger)
	rerank := reranker.New(scorer, cfg.Retrieval.TopKRerank, logger)
	store := vectorstore.NewManager(cfg.Vector, logger)
	split := splitter.New(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap)

	service := rag.NewService(cfg, extract.NewPlainText(), split, embedder, rerank, store, ollama, logger)
	defer service.Close()

	server := api.NewServer(cfg, service, logger)
	return server.Run()
}
