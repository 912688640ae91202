// Package chunker splits raw document text into overlapping fixed-size
// windows with a stable identity per chunk. Splitting is deliberately
// character-based and reproducible; no sentence or paragraph awareness.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"ragbot/pkg/rag"
)

// hashPrefixLen is how much of the chunk text participates in its identity.
const hashPrefixLen = 64

// Config controls the sliding window. Window must be larger than Overlap
// and both must be positive; the window advances by Window-Overlap
// characters per step.
type Config struct {
	Window  int
	Overlap int
}

func (c Config) validate() error {
	if c.Window <= 0 || c.Overlap <= 0 {
		return fmt.Errorf("chunker: window (%d) and overlap (%d) must be positive", c.Window, c.Overlap)
	}
	if c.Window <= c.Overlap {
		return fmt.Errorf("chunker: window (%d) must be larger than overlap (%d)", c.Window, c.Overlap)
	}
	return nil
}

// Split cuts text into trimmed overlapping windows. Window offsets count
// characters, not bytes, so a boundary never lands inside a multi-byte
// rune. Whitespace-only windows are dropped; position is the index in the
// returned sequence. An empty document yields an empty sequence. Splitting
// identical input always yields identical chunks and hashes.
func Split(doc, text string, cfg Config) ([]rag.Chunk, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	stride := cfg.Window - cfg.Overlap
	var chunks []rag.Chunk
	for i := 0; i < len(runes); i += stride {
		end := i + cfg.Window
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[i:end]))
		if piece == "" {
			continue
		}
		pos := len(chunks)
		chunks = append(chunks, rag.Chunk{
			Doc:      doc,
			Position: pos,
			Text:     piece,
			Hash:     Hash(doc, pos, piece),
		})
	}
	return chunks, nil
}

// Hash derives the chunk identity from the document name, the chunk
// position and the first 64 characters of the chunk text. The same chunk
// re-indexed hashes to the same value, so the store can recognize
// duplicates.
func Hash(doc string, position int, text string) string {
	if runes := []rune(text); len(runes) > hashPrefixLen {
		text = string(runes[:hashPrefixLen])
	}
	sum := sha256.Sum256([]byte(doc + strconv.Itoa(position) + text))
	return hex.EncodeToString(sum[:])
}
