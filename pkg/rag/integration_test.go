package rag_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/pkg/chunker"
	"ragbot/pkg/ollama"
	"ragbot/pkg/rag"
	"ragbot/pkg/store"
)

type queryEmbedder struct {
	vec []float32
}

func (q *queryEmbedder) Embed(context.Context, string) ([]float32, error) { return q.vec, nil }
func (q *queryEmbedder) ModelInfo() string                                { return "fake-model" }

// seedStore indexes one document, a.md, as two chunks with orthogonal
// embeddings, the way indexdocs would.
func seedStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.EnsureSchema(ctx))
	require.NoError(t, st.BindModelInfo(ctx, "fake-model"))

	texts := []string{"the first passage of the document", "the second passage of the document"}
	vecs := [][]float32{{1, 0}, {0, 1}}
	for i, text := range texts {
		c := rag.Chunk{Doc: "a.md", Position: i, Text: text, Hash: chunker.Hash("a.md", i, text)}
		inserted, err := st.InsertIfAbsent(ctx, c, vecs[i])
		require.NoError(t, err)
		require.True(t, inserted)
	}
	return st
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsk_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)

	// Query embeds closest to chunk 1.
	emb := &queryEmbedder{vec: []float32{0.1, 0.9}}
	retriever, err := rag.NewRetriever(ctx, st, emb, 3, discardLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "It is in the second passage."}`))
	}))
	defer srv.Close()

	engine := rag.NewEngine(retriever, ollama.New(srv.URL, "m", time.Second), 2, discardLogger())

	results, err := retriever.Retrieve(ctx, "where is it?")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Position)
	assert.Greater(t, results[0].Score, results[1].Score)

	answer, err := engine.Ask(ctx, "where is it?")
	require.NoError(t, err)
	// The backend gave no attribution, so one is synthesized from the
	// snippets that were actually in the prompt, best first.
	assert.Contains(t, answer, "It is in the second passage.")
	assert.Contains(t, answer, "Sources: a.md#chunk1, a.md#chunk0")
}

func TestAsk_BackendDown(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)

	emb := &queryEmbedder{vec: []float32{0.1, 0.9}}
	retriever, err := rag.NewRetriever(ctx, st, emb, 3, discardLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := rag.NewEngine(retriever, ollama.New(srv.URL, "m", time.Second), 2, discardLogger())

	answer, err := engine.Ask(ctx, "anything")
	require.NoError(t, err)
	require.NotEmpty(t, answer)
	assert.True(t, strings.HasPrefix(answer, "Generation backend unavailable"), answer)
	assert.True(t, strings.HasSuffix(answer, "Sources: a.md#chunk1"), answer)
	assert.Contains(t, answer, "the second passage")
}

func TestNewRetriever_EmptyIndexFails(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.EnsureSchema(ctx))

	_, err = rag.NewRetriever(ctx, st, &queryEmbedder{vec: []float32{1, 0}}, 3, discardLogger())
	require.Error(t, err)
}

func TestReindexing_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)

	// Re-running indexing over the unchanged corpus inserts nothing.
	texts := []string{"the first passage of the document", "the second passage of the document"}
	for i, text := range texts {
		c := rag.Chunk{Doc: "a.md", Position: i, Text: text, Hash: chunker.Hash("a.md", i, text)}
		inserted, err := st.InsertIfAbsent(ctx, c, []float32{1, 0})
		require.NoError(t, err)
		assert.False(t, inserted)
	}

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
