package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
)

// Retriever answers similarity queries against the full chunk corpus held
// in memory. Construction loads every stored vector into one contiguous
// matrix; an empty store or an embedding-model mismatch is a fatal
// configuration error, not something to retry.
//
// Repeated queries are served from a cache keyed by the literal query
// string. The cache is unbounded and lives for the process; at this corpus
// scale that is a deliberate trade-off, and a bounded LRU with the same
// keying is the upgrade path.
type Retriever struct {
	embedder Embedder
	k        int
	dim      int
	matrix   []float32 // row-major, len(chunks) rows of dim floats
	chunks   []Chunk
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string][]Result
}

// NewRetriever loads the index from src and validates it against the
// query-time embedder. Fails when the store is empty, when vector
// dimensions are inconsistent, or when the store was built with a
// different embedding model.
func NewRetriever(ctx context.Context, src IndexSource, embedder Embedder, k int, logger *slog.Logger) (*Retriever, error) {
	if k < 1 {
		return nil, fmt.Errorf("retriever: k must be at least 1, got %d", k)
	}
	storedModel, err := src.ModelInfo(ctx)
	if err != nil {
		return nil, err
	}
	if storedModel != "" && storedModel != embedder.ModelInfo() {
		return nil, fmt.Errorf("retriever: index was built with embedding model %q but querying with %q", storedModel, embedder.ModelInfo())
	}

	chunks, vectors, err := src.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("retriever: index store is empty, index the corpus first")
	}

	dim := len(vectors[0])
	matrix := make([]float32, 0, len(vectors)*dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("retriever: chunk %s has dimension %d, want %d", chunks[i].Hash, len(vec), dim)
		}
		matrix = append(matrix, vec...)
	}

	logger.Info("retriever ready", "chunks", len(chunks), "dimension", dim, "model", embedder.ModelInfo())
	return &Retriever{
		embedder: embedder,
		k:        k,
		dim:      dim,
		matrix:   matrix,
		chunks:   chunks,
		logger:   logger,
		cache:    make(map[string][]Result),
	}, nil
}

// Retrieve returns up to min(k, corpus size) chunks ranked by descending
// cosine similarity to the query. Ties keep insertion order. A repeated
// query string returns the cached result without re-embedding.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	r.mu.RLock()
	cached, ok := r.cache[query]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	if len(qvec) != r.dim {
		return nil, fmt.Errorf("retriever: query embedding has dimension %d, want %d", len(qvec), r.dim)
	}

	results := make([]Result, len(r.chunks))
	for i, c := range r.chunks {
		row := r.matrix[i*r.dim : (i+1)*r.dim]
		results[i] = Result{
			Doc:      c.Doc,
			Position: c.Position,
			Score:    cosineSimilarity(qvec, row),
			Text:     c.Text,
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > r.k {
		results = results[:r.k]
	}

	r.mu.Lock()
	if prior, ok := r.cache[query]; ok {
		// Another query raced us; keep the cached value so repeated
		// callers always see the identical slice.
		r.mu.Unlock()
		return prior, nil
	}
	r.cache[query] = results
	r.mu.Unlock()

	r.logger.Debug("retrieved", "query", query, "results", len(results))
	return results, nil
}

// cosineSimilarity returns the angular similarity of two vectors in
// [-1, 1]; 1 means identical direction. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
