package rag

import (
	"context"
	"fmt"
)

// Chunk is a positioned piece of a source document, the unit of indexing
// and retrieval.
type Chunk struct {
	Doc      string // source document name
	Position int    // index of the chunk within the document
	Text     string // trimmed chunk content
	Hash     string // stable identity, unique across the store
}

// Result is a single retrieval hit, ranked by similarity to the query.
type Result struct {
	Doc      string
	Position int
	Score    float64 // cosine similarity, range [-1, 1]
	Text     string
}

// Ref returns the short citation form used in Sources lines,
// e.g. "guide.md#chunk2".
func (r Result) Ref() string {
	return fmt.Sprintf("%s#chunk%d", r.Doc, r.Position)
}

// Header returns the snippet header used in prompts,
// e.g. "guide.md#chunk2 (score=0.83)".
func (r Result) Header() string {
	return fmt.Sprintf("%s#chunk%d (score=%.2f)", r.Doc, r.Position, r.Score)
}

// IndexSource supplies the persisted chunk records the retriever loads at
// construction. Implemented by store.Store.
type IndexSource interface {
	LoadAll(ctx context.Context) ([]Chunk, [][]float32, error)
	ModelInfo(ctx context.Context) (string, error)
}

// Embedder maps text to a fixed-dimension vector. The same model must be
// used at index time and query time; ModelInfo identifies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelInfo() string
}

// Generator produces an answer for a prompt. Implemented by ollama.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
