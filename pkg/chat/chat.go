// Package chat is the conversational front end over the RAG engine. It
// dispatches user commands and keeps a short per-user history. The engine
// stays stateless with respect to user identity; everything user-shaped
// lives here. Transport (Telegram, CLI, ...) is deliberately out of scope:
// callers deliver (user, text) pairs and get a reply string back.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// historyCap bounds the per-user history ring: at most this many entries
// (user and bot lines combined) are kept, oldest dropped first.
const historyCap = 10

// summarizeCount is how many recent queries /summarize reports.
const summarizeCount = 3

const (
	greeting      = "RAG bot ready. Use /ask <query>."
	helpText      = "/ask <query> - query the knowledge base\n/help - show commands\n/summarize - last 3 queries"
	askUsage      = "Usage: /ask <your question>"
	internalError = "Sorry, an internal error occurred."
	noHistory     = "No recent queries found."
)

// Asker is the engine dependency. *rag.Engine satisfies it.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
}

type role string

const (
	roleUser role = "user"
	roleBot  role = "bot"
)

type entry struct {
	who  role
	text string
}

// Bot dispatches commands and tracks per-user history.
type Bot struct {
	engine Asker
	logger *slog.Logger

	mu      sync.Mutex
	history map[string][]entry
}

// New creates a Bot over the given engine.
func New(engine Asker, logger *slog.Logger) *Bot {
	return &Bot{
		engine:  engine,
		logger:  logger,
		history: make(map[string][]entry),
	}
}

// HandleMessage processes one message from userID and returns the reply.
// Raw error text never reaches the user: engine failures become a fixed
// apology.
func (b *Bot) HandleMessage(ctx context.Context, userID, text string) string {
	text = strings.TrimSpace(text)
	switch {
	case text == "/start":
		return greeting
	case text == "/help":
		return helpText
	case text == "/summarize":
		return b.summarize(userID)
	case text == "/ask" || strings.HasPrefix(text, "/ask "):
		query := strings.TrimSpace(strings.TrimPrefix(text, "/ask"))
		if query == "" {
			return askUsage
		}
		return b.ask(ctx, userID, query)
	case strings.HasPrefix(text, "/"):
		return helpText
	case text == "":
		return askUsage
	default:
		// Bare text is treated as a question.
		return b.ask(ctx, userID, text)
	}
}

func (b *Bot) ask(ctx context.Context, userID, query string) string {
	b.record(userID, roleUser, query)

	answer, err := b.engine.Ask(ctx, query)
	if err != nil {
		b.logger.Error("engine failure", "user", userID, "error", err)
		answer = internalError
	}

	b.record(userID, roleBot, answer)
	return answer
}

func (b *Bot) summarize(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var queries []string
	for _, e := range b.history[userID] {
		if e.who == roleUser {
			queries = append(queries, e.text)
		}
	}
	if len(queries) == 0 {
		return noHistory
	}
	if len(queries) > summarizeCount {
		queries = queries[len(queries)-summarizeCount:]
	}
	return "Your last queries:\n- " + strings.Join(queries, "\n- ")
}

func (b *Bot) record(userID string, who role, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := append(b.history[userID], entry{who: who, text: text})
	if len(h) > historyCap {
		h = h[len(h)-historyCap:]
	}
	b.history[userID] = h
}

// History returns a copy of the stored history for userID, oldest first.
// Each line is "role: text".
func (b *Bot) History(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.history[userID]
	out := make([]string, len(h))
	for i, e := range h {
		out[i] = fmt.Sprintf("%s: %s", e.who, e.text)
	}
	return out
}
