package index

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"
)

// Match is one nearest-neighbor result: a historical contract and its
// similarity to the query, in [0, 1] for cosine over normalized scores.
type Match struct {
	ContractID string
	Score      float64
}

// SQLiteIndex stores SOW embeddings and raw texts in the sow_vectors table
// and answers brute-force cosine similarity queries. The raw text is kept
// alongside the embedding so the lexical fallback can operate on the same
// corpus. The index never mutates caller data.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex wraps an existing *sql.DB for index operations. The
// sow_vectors table must already exist (created via migrations).
func NewSQLiteIndex(db *sql.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

// Upsert stores (or replaces) the embedding and raw text for a contract.
// A nil embedding is allowed; such records are only reachable through the
// lexical strategy.
func (s *SQLiteIndex) Upsert(contractID, title, text string, embedding []float32) error {
	var blob []byte
	if embedding != nil {
		blob = encodeFloat32s(embedding)
	}
	_, err := s.db.Exec(`
		INSERT INTO sow_vectors (contract_id, title, sow_text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET
			title = excluded.title,
			sow_text = excluded.sow_text,
			embedding = excluded.embedding`,
		contractID, title, text, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting sow vector %s: %w", contractID, err)
	}
	return nil
}

// SearchVector returns the top-K contracts by descending cosine similarity
// to the query vector. Ties are broken by ascending contract ID. Records
// indexed without an embedding are skipped.
func (s *SQLiteIndex) SearchVector(vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT contract_id, embedding FROM sow_vectors WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying sow vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	var buf []float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		matches = append(matches, Match{ContractID: id, Score: cosine(vector, buf, queryNorm)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return rank(matches, topK), nil
}

// Count returns the number of indexed contracts.
func (s *SQLiteIndex) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sow_vectors`).Scan(&n)
	return n, err
}

// texts returns contract_id -> raw SOW text for the whole corpus, used by
// the lexical strategy.
func (s *SQLiteIndex) texts() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT contract_id, sow_text FROM sow_vectors`)
	if err != nil {
		return nil, fmt.Errorf("querying sow texts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out[id] = text
	}
	return out, rows.Err()
}

// rank sorts matches by descending score, ties by ascending contract ID,
// and truncates to topK.
func rank(matches []Match, topK int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ContractID < matches[j].ContractID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during search scans.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine computes cosine similarity as dot(a,b) / (aNorm * bNorm).
// aNorm is the precomputed L2 norm of vector a.
func cosine(a, b []float32, aNorm float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}
