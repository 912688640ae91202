package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize_NormalizesAndDeduplicates(t *testing.T) {
	raw := "The answer.\nThe answer.\n\n  More detail.  \n\nSources: a.md#chunk0"
	got := Finalize(raw, manyResults(2), 2)
	assert.Equal(t, "The answer. More detail. Sources: a.md#chunk0", got)
}

func TestFinalize_KeepsNonAdjacentRepeats(t *testing.T) {
	// Only exact adjacent duplicates collapse.
	raw := "alpha\nbeta\nalpha\nSources: x"
	got := Finalize(raw, manyResults(1), 2)
	assert.Equal(t, "alpha beta alpha Sources: x", got)
}

func TestFinalize_AppendsMissingSources(t *testing.T) {
	got := Finalize("An answer with no attribution.", manyResults(5), 2)
	assert.True(t, strings.HasSuffix(got, "Sources: a.md#chunk0, a.md#chunk1"), got)
	assert.Equal(t, 1, strings.Count(got, "Sources:"))
}

func TestFinalize_DoesNotDuplicateSources(t *testing.T) {
	got := Finalize("Answer. Sources: a.md#chunk1", manyResults(2), 2)
	assert.Equal(t, 1, strings.Count(got, "Sources:"))
}

func TestFinalize_CapsLongAnswers(t *testing.T) {
	// 1200 characters, no Sources line: both the synthesized line and the
	// cap apply, and the cut lands on a word boundary.
	raw := strings.TrimSpace(strings.Repeat("word ", 240))
	require.Equal(t, 1199, len(raw))

	got := Finalize(raw, manyResults(2), 2)
	assert.LessOrEqual(t, len(got), 1000)
	assert.True(t, strings.HasSuffix(got, "..."), got)
	assert.NotContains(t, got, "wor...") // cut at the last whole word
}

func TestFallback(t *testing.T) {
	results := []Result{{Doc: "a.md", Position: 1, Score: 0.7, Text: "the best snippet"}}
	got := Fallback(results)

	assert.True(t, strings.HasPrefix(got, fallbackNotice), got)
	assert.Contains(t, got, "the best snippet")
	assert.True(t, strings.HasSuffix(got, "Sources: a.md#chunk1"), got)
}

func TestFallback_CapsSnippet(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("verylongword ", 60)) // 779 chars
	results := []Result{{Doc: "a.md", Position: 0, Score: 0.7, Text: long}}
	got := Fallback(results)

	// Notice + capped snippet + attribution.
	snippet := strings.Split(got, "\n\n")[1]
	assert.LessOrEqual(t, len(snippet), fallbackSnippetLen+3)
	assert.True(t, strings.HasSuffix(snippet, "..."), snippet)
	assert.True(t, strings.HasSuffix(got, "Sources: a.md#chunk0"), got)
}

func TestTruncateAtWord(t *testing.T) {
	assert.Equal(t, "short", truncateAtWord("short", 1000, 950))

	long := strings.Repeat("ab ", 400) // 1200 chars
	got := truncateAtWord(long, 1000, 950)
	assert.LessOrEqual(t, len(got), 953)
	assert.True(t, strings.HasSuffix(got, "..."))

	// No space to cut at: keep the prefix as-is.
	unbroken := strings.Repeat("a", 1200)
	got = truncateAtWord(unbroken, 1000, 950)
	assert.Equal(t, strings.Repeat("a", 950)+"...", got)
}

func TestTruncateAtWord_MultibyteSafe(t *testing.T) {
	// Limits count characters: the cut must not split a rune and the
	// result must stay valid UTF-8.
	wide := strings.Repeat("é", 1200)
	got := truncateAtWord(wide, 1000, 950)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 950)+"...", got)

	// 600 runes in 1200 bytes fit the 1000-character cap untouched.
	assert.Equal(t, strings.Repeat("é", 600), truncateAtWord(strings.Repeat("é", 600), 1000, 950))
}

func TestFallback_MultibyteSnippet(t *testing.T) {
	results := []Result{{Doc: "a.md", Position: 0, Score: 0.7, Text: strings.Repeat("é", 500)}}
	got := Fallback(results)
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, strings.Repeat("é", 400))
	assert.True(t, strings.HasSuffix(got, "Sources: a.md#chunk0"), got)
}
