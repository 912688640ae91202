package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// Searcher is the retrieval dependency of the engine. *Retriever
// satisfies it.
type Searcher interface {
	Retrieve(ctx context.Context, query string) ([]Result, error)
}

// Engine runs the full query flow: retrieve, build the grounded prompt,
// generate, post-process. It is stateless with respect to who is asking;
// per-user concerns belong to the front-end.
type Engine struct {
	retriever Searcher
	generator Generator
	topN      int
	logger    *slog.Logger
}

// NewEngine wires the query pipeline. topN is how many retrieved snippets
// reach the prompt (and the synthesized Sources line).
func NewEngine(retriever Searcher, generator Generator, topN int, logger *slog.Logger) *Engine {
	if topN < 1 {
		topN = DefaultTopN
	}
	return &Engine{
		retriever: retriever,
		generator: generator,
		topN:      topN,
		logger:    logger,
	}
}

// Ask answers a query from the indexed corpus. Generation failures are
// recovered locally via the snippet fallback and never surface to the
// caller; the returned error is non-nil only when retrieval itself fails
// (no query embedding means no grounded answer of any kind is possible).
func (e *Engine) Ask(ctx context.Context, query string) (string, error) {
	results, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	if len(results) == 0 {
		return NotFoundAnswer, nil
	}

	prompt := BuildPrompt(query, results, e.topN)
	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("generation failed, serving snippet fallback", "error", err)
		return Fallback(results), nil
	}
	return Finalize(raw, results, e.topN), nil
}
