package history

import (
	"fmt"

	"github.com/travisfleish/staffing-plan-poc/internal/index"
)

// ContractMapper resolves the identifier a SOW document was indexed under
// to the contract ID used in the historical hours table. The two often
// differ: scope documents carry verbose titles while hours are billed
// against short contract codes. The mapping is injected so tests and
// deployments can substitute arbitrary tables; unmapped IDs resolve to
// themselves.
type ContractMapper map[string]string

// Resolve returns the historical contract ID for a SOW identifier.
func (m ContractMapper) Resolve(sowID string) string {
	if mapped, ok := m[sowID]; ok {
		return mapped
	}
	return sowID
}

// ContractMatch pairs a similar historical contract with its aggregated
// hours profile. Derived per request, never persisted.
type ContractMatch struct {
	ContractID string
	Similarity float64
	TotalHours float64
	RoleShares map[string]float64
}

// Aggregator supplies the historical aggregates for a contract. Implemented
// by storage.Store.
type Aggregator interface {
	TotalHours(contractID string) (float64, error)
	RoleShares(contractID string) (map[string]float64, error)
}

// BuildMatches converts similarity hits into contract matches with
// aggregated historical hours. Hits whose resolved contract has no recorded
// hours are dropped; they carry no usable baseline signal.
func BuildMatches(agg Aggregator, mapper ContractMapper, hits []index.Match) ([]ContractMatch, error) {
	matches := make([]ContractMatch, 0, len(hits))
	for _, hit := range hits {
		contractID := mapper.Resolve(hit.ContractID)

		total, err := agg.TotalHours(contractID)
		if err != nil {
			return nil, fmt.Errorf("aggregating hours for %s: %w", contractID, err)
		}
		if total <= 0 {
			continue
		}

		shares, err := agg.RoleShares(contractID)
		if err != nil {
			return nil, fmt.Errorf("aggregating role shares for %s: %w", contractID, err)
		}

		matches = append(matches, ContractMatch{
			ContractID: contractID,
			Similarity: hit.Score,
			TotalHours: total,
			RoleShares: shares,
		})
	}
	return matches, nil
}
