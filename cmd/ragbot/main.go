// Command ragbot answers questions from the indexed corpus: one-shot with
// a query argument, or an interactive chat loop over stdin when run
// without one.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"ragbot/pkg/chat"
	"ragbot/pkg/config"
	"ragbot/pkg/embedder"
	"ragbot/pkg/ollama"
	"ragbot/pkg/rag"
	"ragbot/pkg/store"
)

func main() {
	// Load .env file if it exists (for API key and overrides)
	_ = godotenv.Load()

	dbPath := flag.String("db", "", "index database file (overrides DB_PATH)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), *dbPath, flag.Args(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath string, args []string, logger *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	// The index file must exist before any query is served; an absent or
	// empty store is a configuration error, not a retryable one.
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("index %s not found, run indexdocs first: %w", cfg.DBPath, err)
	}

	emb, err := embedder.NewOpenAIEmbedder(cfg.EmbedModel)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	retriever, err := rag.NewRetriever(ctx, st, emb, cfg.TopK, logger)
	if err != nil {
		return err
	}

	generator := ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout)
	engine := rag.NewEngine(retriever, generator, cfg.TopN, logger)

	if len(args) > 0 {
		answer, err := engine.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	return chatLoop(ctx, chat.New(engine, logger))
}

func chatLoop(ctx context.Context, bot *chat.Bot) error {
	fmt.Println("ragbot interactive mode. /help for commands, /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		fmt.Println(bot.HandleMessage(ctx, "local", line))
	}
}
