package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeAsker) Ask(_ context.Context, query string) (string, error) {
	f.asked = append(f.asked, query)
	return f.answer, f.err
}

func newTestBot(engine Asker) *Bot {
	return New(engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleMessage_Commands(t *testing.T) {
	bot := newTestBot(&fakeAsker{answer: "ok"})
	ctx := context.Background()

	assert.Equal(t, greeting, bot.HandleMessage(ctx, "u1", "/start"))
	assert.Equal(t, helpText, bot.HandleMessage(ctx, "u1", "/help"))
	assert.Equal(t, helpText, bot.HandleMessage(ctx, "u1", "/bogus"))
	assert.Equal(t, askUsage, bot.HandleMessage(ctx, "u1", "/ask"))
	assert.Equal(t, askUsage, bot.HandleMessage(ctx, "u1", "/ask   "))
}

func TestHandleMessage_Ask(t *testing.T) {
	engine := &fakeAsker{answer: "answer. Sources: a.md#chunk0"}
	bot := newTestBot(engine)

	got := bot.HandleMessage(context.Background(), "u1", "/ask what is up?")
	assert.Equal(t, "answer. Sources: a.md#chunk0", got)
	require.Equal(t, []string{"what is up?"}, engine.asked)

	history := bot.History("u1")
	require.Len(t, history, 2)
	assert.Equal(t, "user: what is up?", history[0])
	assert.Equal(t, "bot: answer. Sources: a.md#chunk0", history[1])
}

func TestHandleMessage_BareTextIsAQuestion(t *testing.T) {
	engine := &fakeAsker{answer: "ok"}
	bot := newTestBot(engine)

	bot.HandleMessage(context.Background(), "u1", "plain question")
	assert.Equal(t, []string{"plain question"}, engine.asked)
}

func TestHandleMessage_EngineErrorHidden(t *testing.T) {
	bot := newTestBot(&fakeAsker{err: errors.New("index store exploded")})

	got := bot.HandleMessage(context.Background(), "u1", "/ask anything")
	assert.Equal(t, internalError, got)
	assert.NotContains(t, got, "exploded") // raw error text never reaches the user
}

func TestHistory_Bounded(t *testing.T) {
	bot := newTestBot(&fakeAsker{answer: "ok"})
	for i := 0; i < 12; i++ {
		bot.HandleMessage(context.Background(), "u1", fmt.Sprintf("/ask question %d", i))
	}

	history := bot.History("u1")
	require.Len(t, history, historyCap)
	// Oldest entries dropped first.
	assert.Equal(t, "user: question 7", history[0])
	assert.Equal(t, "bot: ok", history[len(history)-1])
}

func TestSummarize(t *testing.T) {
	bot := newTestBot(&fakeAsker{answer: "ok"})
	ctx := context.Background()

	assert.Equal(t, noHistory, bot.HandleMessage(ctx, "u1", "/summarize"))

	for _, q := range []string{"one", "two", "three", "four"} {
		bot.HandleMessage(ctx, "u1", "/ask "+q)
	}

	got := bot.HandleMessage(ctx, "u1", "/summarize")
	assert.True(t, strings.HasPrefix(got, "Your last queries:"), got)
	assert.NotContains(t, got, "one") // only the last three
	assert.Contains(t, got, "two")
	assert.Contains(t, got, "three")
	assert.Contains(t, got, "four")
}

func TestHistory_PerUser(t *testing.T) {
	bot := newTestBot(&fakeAsker{answer: "ok"})
	ctx := context.Background()

	bot.HandleMessage(ctx, "u1", "/ask from user one")
	bot.HandleMessage(ctx, "u2", "/ask from user two")

	assert.Len(t, bot.History("u1"), 2)
	assert.Len(t, bot.History("u2"), 2)
	assert.Contains(t, bot.History("u1")[0], "user one")
	assert.Contains(t, bot.History("u2")[0], "user two")
}
