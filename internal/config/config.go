package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/vanillarag/vanillarag/internal/core"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Reranker  RerankerConfig  `mapstructure:"reranker"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Splitter  SplitterConfig  `mapstructure:"splitter"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OllamaConfig holds the generation backend configuration
type OllamaConfig struct {
	Host          string `mapstructure:"host"`
	Model         string `mapstructure:"model"`
	ContextLength int    `mapstructure:"context_length"`
	Timeout       int    `mapstructure:"timeout"` // seconds
}

// EmbeddingConfig holds embedding model configuration
type EmbeddingConfig struct {
	Model string `mapstructure:"model"`
}

// RerankerConfig holds the cross-encoder scoring service configuration
type RerankerConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

// VectorConfig holds vector store configuration
type VectorConfig struct {
	Type string `mapstructure:"type"` // flat, sqlite
	Path string `mapstructure:"path"`
}

// SplitterConfig holds text chunking configuration
type SplitterConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// RetrievalConfig holds retrieval stage sizes
type RetrievalConfig struct {
	TopKRetrieve int `mapstructure:"top_k_retrieve"`
	TopKRerank   int `mapstructure:"top_k_rerank"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Ollama: OllamaConfig{
			Host:          "http://localhost:11434",
			Model:         "qwen2.5:14b",
			ContextLength: 8192,
			Timeout:       120,
		},
		Embedding: EmbeddingConfig{
			Model: "nomic-embed-text",
		},
		Reranker: RerankerConfig{
			Host:  "http://localhost:8001",
			Model: "cross-encoder/ms-marco-MiniLM-L-6-v2",
		},
		Vector: VectorConfig{
			Type: "flat",
			Path: "data/vector_db",
		},
		Splitter: SplitterConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
		},
		Retrieval: RetrievalConfig{
			TopKRetrieve: 10,
			TopKRerank:   3,
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in default locations
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".vanillarag"))
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variable overrides
	v.SetEnvPrefix("VANILLARAG")
	v.AutomaticEnv()

	v.BindEnv("server.host", "VANILLARAG_SERVER_HOST")
	v.BindEnv("server.port", "VANILLARAG_SERVER_PORT")
	v.BindEnv("ollama.host", "VANILLARAG_OLLAMA_HOST")
	v.BindEnv("ollama.model", "VANILLARAG_OLLAMA_MODEL")
	v.BindEnv("embedding.model", "VANILLARAG_EMBEDDING_MODEL")
	v.BindEnv("reranker.host", "VANILLARAG_RERANKER_HOST")
	v.BindEnv("reranker.model", "VANILLARAG_RERANKER_MODEL")
	v.BindEnv("vector.type", "VANILLARAG_VECTOR_TYPE")
	v.BindEnv("vector.path", "VANILLARAG_VECTOR_PATH")
	v.BindEnv("splitter.chunk_size", "VANILLARAG_CHUNK_SIZE")
	v.BindEnv("splitter.chunk_overlap", "VANILLARAG_CHUNK_OVERLAP")
	v.BindEnv("retrieval.top_k_retrieve", "VANILLARAG_TOP_K_RETRIEVE")
	v.BindEnv("retrieval.top_k_rerank", "VANILLARAG_TOP_K_RERANK")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, core.Errorf(core.KindConfiguration, "failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.Errorf(core.KindConfiguration, "failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Splitter.ChunkSize <= 0 {
		return core.NewError(core.KindConfiguration, "chunk_size must be positive")
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return core.NewError(core.KindConfiguration, "chunk_overlap must be in [0, chunk_size)")
	}
	if c.Retrieval.TopKRetrieve <= 0 {
		return core.NewError(core.KindConfiguration, "top_k_retrieve must be positive")
	}
	if c.Retrieval.TopKRerank <= 0 {
		return core.NewError(core.KindConfiguration, "top_k_rerank must be positive")
	}
	switch c.Vector.Type {
	case "flat", "sqlite":
	default:
		return core.Errorf(core.KindConfiguration, "unknown vector store type: %s", c.Vector.Type)
	}
	return nil
}
