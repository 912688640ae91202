package rag

import (
	"fmt"
	"strings"
)

// NotFoundAnswer is the exact sentence returned when the corpus has
// nothing to say, and the sentence the generator is instructed to emit
// when the snippets do not support an answer.
const NotFoundAnswer = "I couldn't find the answer in the documents."

// DefaultTopN is how many retrieved snippets reach the prompt.
const DefaultTopN = 2

// BuildPrompt assembles the grounded prompt from the query and at most
// topN retrieved snippets, capping the context the generator can draw on.
// Each snippet is its header line followed by its text, snippets separated
// by a blank line.
func BuildPrompt(query string, results []Result, topN int) string {
	if topN > len(results) {
		topN = len(results)
	}
	snippets := make([]string, 0, topN)
	for _, r := range results[:topN] {
		snippets = append(snippets, r.Header()+"\n"+r.Text)
	}
	context := strings.Join(snippets, "\n\n")

	var b strings.Builder
	b.WriteString("You are a precise assistant. Use ONLY the provided document snippets below and nothing else.\n\n")
	fmt.Fprintf(&b, "Context:\n%s\n\n", context)
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Answer VERY CONCISELY in 1 or 2 short sentences, only using facts supported by the snippets. ")
	b.WriteString("Do NOT add any information that is not present. ")
	b.WriteString("If the answer is not present in the snippets, reply exactly: \"" + NotFoundAnswer + "\" ")
	b.WriteString("At the end, append a single 'Sources:' line listing the snippet headers you used (comma-separated), e.g. Sources: doc1.md#chunk0.\n")
	return b.String()
}
