// Package embedder maps text to fixed-dimension dense vectors. Embedding
// is a pure function of text and model identity: the same model must
// produce the index-time and query-time vectors, and ModelInfo is
// persisted with the index so the retriever can enforce that.
package embedder

import "context"

// Embedder generates embeddings. Implementations may batch for
// throughput, but EmbedBatch must produce the identical per-text vector
// that Embed would.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}
