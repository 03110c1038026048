package index

import (
	"strings"
	"unicode"
)

// SearchLexical ranks the indexed corpus by token-set Jaccard similarity to
// the query text. It is fully deterministic and serves as the fallback
// strategy when the embedding service is unavailable; results use the same
// Match shape and ordering rules as SearchVector.
func (s *SQLiteIndex) SearchLexical(queryText string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	query := tokenSet(queryText)
	if len(query) == 0 {
		return nil, nil
	}

	texts, err := s.texts()
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(texts))
	for id, text := range texts {
		matches = append(matches, Match{ContractID: id, Score: jaccard(query, tokenSet(text))})
	}
	return rank(matches, topK), nil
}

// tokenSet lowercases the text and splits it into a set of alphanumeric
// tokens. Letters and digits from any script count; SOWs are not always
// ASCII.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b| for two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
