// Package config holds the process-start configuration. Values come from
// the environment (a .env file is loaded by the binaries before this runs)
// with fixed defaults; nothing is hot-reloaded.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the configuration surface consumed by the pipeline.
type Config struct {
	DocsDir string // corpus directory read at index time
	DBPath  string // SQLite index file

	EmbedModel string // embedding model, must match between indexing and querying

	OllamaURL     string        // generation backend base URL
	OllamaModel   string        // generation model
	OllamaTimeout time.Duration // per-request bound on the generation call

	ChunkWindow  int // sliding window size in characters
	ChunkOverlap int // window overlap in characters

	TopK int // retrieval candidate count
	TopN int // snippets passed to the prompt
}

// FromEnv builds the configuration from the environment, applying defaults
// and validating the result.
func FromEnv() (Config, error) {
	cfg := Config{
		DocsDir:     getEnv("DOCS_DIR", "docs"),
		DBPath:      getEnv("DB_PATH", "embeddings.db"),
		EmbedModel:  getEnv("EMBED_MODEL", "text-embedding-3-small"),
		OllamaURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "phi3:mini"),
	}
	var err error
	var timeout int
	if timeout, err = getEnvInt("OLLAMA_TIMEOUT", 30); err != nil {
		return Config{}, err
	}
	cfg.OllamaTimeout = time.Duration(timeout) * time.Second
	if cfg.ChunkWindow, err = getEnvInt("CHUNK_SIZE", 400); err != nil {
		return Config{}, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 100); err != nil {
		return Config{}, err
	}
	if cfg.TopK, err = getEnvInt("TOP_K", 3); err != nil {
		return Config{}, err
	}
	if cfg.TopN, err = getEnvInt("TOP_N", 2); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.ChunkOverlap <= 0 || c.ChunkWindow <= c.ChunkOverlap {
		return fmt.Errorf("config: chunk window (%d) must be larger than overlap (%d), both positive", c.ChunkWindow, c.ChunkOverlap)
	}
	if c.TopK < 1 {
		return fmt.Errorf("config: TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.TopN < 1 {
		return fmt.Errorf("config: TOP_N must be at least 1, got %d", c.TopN)
	}
	if c.OllamaTimeout <= 0 {
		return fmt.Errorf("config: OLLAMA_TIMEOUT must be positive, got %s", c.OllamaTimeout)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q", key, v)
	}
	return n, nil
}
