package index

import (
	"context"
	"log/slog"
)

// Searcher answers nearest-neighbor queries over the indexed SOW corpus.
// It embeds the query and searches by cosine similarity; when the embedding
// service is unavailable it transparently degrades to the deterministic
// lexical strategy. Callers never observe which strategy ran.
type Searcher struct {
	embedder *Embedder
	store    *SQLiteIndex
}

// NewSearcher creates a Searcher over the given embedder and index.
func NewSearcher(embedder *Embedder, store *SQLiteIndex) *Searcher {
	return &Searcher{embedder: embedder, store: store}
}

// Index embeds the SOW text and stores it under contractID. If embedding
// fails, the text is indexed without a vector so lexical search still
// reaches it; the error is absorbed.
func (s *Searcher) Index(ctx context.Context, contractID, title, text string) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("indexing without embedding, lexical search only", "contract_id", contractID, "error", err)
		vec = nil
	}
	return s.store.Upsert(contractID, title, text, vec)
}

// Doc is one SOW document to index.
type Doc struct {
	ContractID string
	Title      string
	Text       string
}

// IndexAll embeds a batch of SOW documents concurrently and stores them. If
// batch embedding fails, every document is stored without a vector so lexical
// search still reaches it; the error is absorbed.
func (s *Searcher) IndexAll(ctx context.Context, docs []Doc) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("batch embedding failed, indexing for lexical search only", "docs", len(docs), "error", err)
		vecs = make([][]float32, len(docs))
	}
	for i, d := range docs {
		if err := s.store.Upsert(d.ContractID, d.Title, d.Text, vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the top-K most similar indexed contracts for the query text.
func (s *Searcher) Search(ctx context.Context, queryText string, topK int) ([]Match, error) {
	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		slog.Warn("query embedding failed, using lexical similarity", "error", err)
		return s.store.SearchLexical(queryText, topK)
	}

	matches, err := s.store.SearchVector(vec, topK)
	if err != nil {
		return nil, err
	}
	// Embedded corpus may be empty (records indexed while the engine was
	// down); the lexical corpus is a superset.
	if len(matches) == 0 {
		return s.store.SearchLexical(queryText, topK)
	}
	return matches, nil
}
