// Package store persists chunk records and their embeddings in a single
// SQLite database file. Insertion is idempotent by chunk hash, so
// re-indexing an unchanged corpus is a no-op.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"ragbot/pkg/rag"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY,
	doc_name TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	emb BLOB NOT NULL,
	chunk_hash TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const modelInfoKey = "embedding_model"

// Store wraps the SQLite chunk database. Safe for concurrent use; the
// hash uniqueness constraint makes InsertIfAbsent atomic.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the chunk and meta tables if absent. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// Has reports whether a chunk with the given hash is already indexed.
func (s *Store) Has(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chunks WHERE chunk_hash = ?`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lookup hash: %w", err)
	}
	return true, nil
}

// InsertIfAbsent stores the chunk and its embedding unless a chunk with
// the same hash already exists. Returns whether a row was inserted.
func (s *Store) InsertIfAbsent(ctx context.Context, c rag.Chunk, vec []float32) (bool, error) {
	if c.Hash == "" {
		return false, errors.New("store: chunk has no hash")
	}
	if len(vec) == 0 {
		return false, errors.New("store: empty embedding")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chunks (doc_name, chunk_index, text, emb, chunk_hash) VALUES (?, ?, ?, ?, ?)`,
		c.Doc, c.Position, c.Text, encodeVector(vec), c.Hash)
	if err != nil {
		return false, fmt.Errorf("store: insert chunk %s: %w", c.Hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: insert chunk %s: %w", c.Hash, err)
	}
	return n > 0, nil
}

// LoadAll returns every stored chunk with its embedding, in insertion
// order. Chunks and vectors are parallel slices.
func (s *Store) LoadAll(ctx context.Context) ([]rag.Chunk, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_name, chunk_index, text, emb, chunk_hash FROM chunks ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("store: load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	var vectors [][]float32
	for rows.Next() {
		var c rag.Chunk
		var blob []byte
		if err := rows.Scan(&c.Doc, &c.Position, &c.Text, &blob, &c.Hash); err != nil {
			return nil, nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("store: chunk %s: %w", c.Hash, err)
		}
		chunks = append(chunks, c)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: load chunks: %w", err)
	}
	return chunks, vectors, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count chunks: %w", err)
	}
	return n, nil
}

// ModelInfo returns the embedding model identity the index was built with,
// or "" when the store is fresh.
func (s *Store) ModelInfo(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, modelInfoKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: read model info: %w", err)
	}
	return v, nil
}

// BindModelInfo records the embedding model identity, or fails when the
// store was built with a different one. Mixing models invalidates every
// similarity score, so this is refused rather than overwritten.
func (s *Store) BindModelInfo(ctx context.Context, model string) error {
	existing, err := s.ModelInfo(ctx)
	if err != nil {
		return err
	}
	if existing != "" && existing != model {
		return fmt.Errorf("store: index was built with embedding model %q, refusing to mix in %q", existing, model)
	}
	if existing == model {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, modelInfoKey, model); err != nil {
		return fmt.Errorf("store: write model info: %w", err)
	}
	return nil
}

// encodeVector packs a vector as little-endian float32s, one per
// dimension. Exact on reload: no precision is lost re-encoding.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has invalid length %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
