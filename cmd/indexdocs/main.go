// Command indexdocs runs the offline indexing phase: it chunks every
// supported document in the corpus directory, embeds the chunks that are
// not yet in the store, and persists them. Re-running over an unchanged
// corpus inserts nothing, so an interrupted run simply resumes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"ragbot/pkg/chunker"
	"ragbot/pkg/config"
	"ragbot/pkg/embedder"
	"ragbot/pkg/loader"
	"ragbot/pkg/store"
)

func main() {
	// Load .env file if it exists (for API key and overrides)
	_ = godotenv.Load()

	docsDir := flag.String("docs", "", "corpus directory (overrides DOCS_DIR)")
	dbPath := flag.String("db", "", "index database file (overrides DB_PATH)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), *docsDir, *dbPath, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, docsDir, dbPath string, logger *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if docsDir != "" {
		cfg.DocsDir = docsDir
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	fmt.Println("Starting document indexing...")

	docs, err := loader.LoadDir(cfg.DocsDir)
	if err != nil {
		return err
	}
	fmt.Printf("  Found %d documents in %s\n", len(docs), cfg.DocsDir)

	emb, err := embedder.NewOpenAIEmbedder(cfg.EmbedModel)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := st.BindModelInfo(ctx, emb.ModelInfo()); err != nil {
		return err
	}

	chunkCfg := chunker.Config{Window: cfg.ChunkWindow, Overlap: cfg.ChunkOverlap}
	var inserted, skipped int

	for _, doc := range docs {
		chunks, err := chunker.Split(doc.Name, doc.Text, chunkCfg)
		if err != nil {
			return err
		}
		fmt.Printf("  Indexing %s (%d chunks)\n", doc.Name, len(chunks))

		// Embed only chunks the store does not already have; duplicate
		// hashes are not an error, just work already done.
		newIdx := make([]int, 0, len(chunks))
		texts := make([]string, 0, len(chunks))
		for i, c := range chunks {
			exists, err := st.Has(ctx, c.Hash)
			if err != nil {
				return err
			}
			if exists {
				skipped++
				continue
			}
			newIdx = append(newIdx, i)
			texts = append(texts, c.Text)
		}
		if len(texts) == 0 {
			continue
		}

		vecs, err := emb.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", doc.Name, err)
		}
		for j, i := range newIdx {
			ok, err := st.InsertIfAbsent(ctx, chunks[i], vecs[j])
			if err != nil {
				return err
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
		}
		logger.Debug("indexed document", "doc", doc.Name, "chunks", len(chunks), "new", len(newIdx))
	}

	total, err := st.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexing complete: %d inserted, %d already present, %d total in %s\n",
		inserted, skipped, total, cfg.DBPath)
	return nil
}
