package rag

import (
	"fmt"
	"strings"
)

const (
	// answerMaxLen / answerCutLen bound the final answer: text longer than
	// answerMaxLen is cut back to the last word boundary within the first
	// answerCutLen characters, then marked with an ellipsis.
	answerMaxLen = 1000
	answerCutLen = 950

	// fallbackSnippetLen bounds the raw snippet used when generation is
	// unavailable.
	fallbackSnippetLen = 400

	fallbackNotice = "Generation backend unavailable, returning the best matching snippet instead."
)

// Finalize turns raw generator output into the user-facing answer:
// normalize lines, guarantee a Sources line, cap the length. results must
// be the retrieval results the prompt was built from, so a synthesized
// Sources line cites what the generator actually saw.
func Finalize(raw string, results []Result, topN int) string {
	text := normalizeLines(raw)

	if !strings.Contains(text, "Sources:") {
		if topN > len(results) {
			topN = len(results)
		}
		refs := make([]string, 0, topN)
		for _, r := range results[:topN] {
			refs = append(refs, r.Ref())
		}
		text = fmt.Sprintf("%s\n\nSources: %s", text, strings.Join(refs, ", "))
	}

	return truncateAtWord(text, answerMaxLen, answerCutLen)
}

// Fallback builds the degraded answer from the single best retrieval
// result. Pure formatting over already-validated data; it cannot fail, so
// the user always gets an attributed answer even when the backend is down.
func Fallback(results []Result) string {
	top := results[0]
	snippet := truncateAtWord(strings.TrimSpace(top.Text), fallbackSnippetLen, fallbackSnippetLen)
	return fmt.Sprintf("%s\n\n%s\n\nSources: %s", fallbackNotice, snippet, top.Ref())
}

// normalizeLines flattens raw model output: lines trimmed, empties
// dropped, exact adjacent duplicates collapsed, the rest joined with
// single spaces. Only adjacent exact repeats collapse; rewriting
// non-adjacent repetition would silently alter model output.
func normalizeLines(raw string) string {
	var kept []string
	prev := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == prev {
			continue
		}
		kept = append(kept, line)
		prev = line
	}
	return strings.Join(kept, " ")
}

// truncateAtWord caps s at max characters by cutting to the last word
// boundary within the first keep characters and appending "...". Limits
// count characters, not bytes, so the cut never splits a rune. Strings
// within the cap pass through untouched.
func truncateAtWord(s string, max, keep int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	t := string(runes[:keep])
	if i := strings.LastIndex(t, " "); i > 0 {
		t = t[:i]
	}
	return t + "..."
}
