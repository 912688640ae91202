package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder uses the OpenAI API for embeddings.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder creates an OpenAI embedder for the given model. The
// API key is read from OPENAI_API_KEY.
func NewOpenAIEmbedder(model string) (*OpenAIEmbedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	dim := 1536 // text-embedding-3-small
	if model == "text-embedding-3-large" {
		dim = 3072
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(key),
		model:  model,
		dim:    dim,
	}, nil
}

// Embed generates the embedding for a single text. Failures are not
// retried here; indexing aborts and query-time retrieval surfaces the
// error.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, errors.New("cannot embed empty text")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings API: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned from API")
	}

	v := make([]float32, len(resp.Data[0].Embedding))
	copy(v, resp.Data[0].Embedding)

	// L2 normalize (important for cosine similarity)
	l2normalize(v)

	return v, nil
}

// EmbedBatch embeds texts with bounded concurrency, preserving order.
// Each text goes through the same single-text call, so batching never
// changes the per-text vector.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	errChan := make(chan error, len(texts))
	sem := make(chan struct{}, 10) // limit concurrent API calls

	for i := range texts {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()

			vec, err := e.Embed(ctx, texts[idx])
			if err != nil {
				errChan <- fmt.Errorf("text %d: %w", idx, err)
				return
			}
			embeddings[idx] = vec
			errChan <- nil
		}(i)
	}

	for range texts {
		if err := <-errChan; err != nil {
			return nil, err
		}
	}

	return embeddings, nil
}

// Dimension returns the embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns the model provenance string stored with the index.
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-" + e.model
}

// l2normalize normalizes a vector to unit length.
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
