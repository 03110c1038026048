package sow

import "fmt"

// Complexity is the coarse difficulty classification of a scope document.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ParseComplexity normalizes a free-form complexity string. Unknown values
// map to medium, matching the extraction fallback behavior.
func ParseComplexity(s string) Complexity {
	switch Complexity(s) {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return Complexity(s)
	default:
		return ComplexityMedium
	}
}

// FeatureSet is the structured representation of a scope-of-work document.
// It is produced once per request, is immutable after extraction, and is
// discarded after plan generation.
type FeatureSet struct {
	Complexity          Complexity `json:"complexity_level"`
	DurationMonths      float64    `json:"duration_months"`
	WorkstreamCount     int        `json:"workstream_count"`
	EstimatedTotalHours float64    `json:"estimated_total_hours"`
	KeyDeliverables     []string   `json:"key_deliverables"`
}

// Validate reports whether the feature set satisfies its field invariants.
func (f FeatureSet) Validate() error {
	switch f.Complexity {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
	default:
		return fmt.Errorf("invalid complexity level %q", f.Complexity)
	}
	if f.DurationMonths <= 0 {
		return fmt.Errorf("duration_months must be positive, got %v", f.DurationMonths)
	}
	if f.WorkstreamCount < 0 {
		return fmt.Errorf("workstream_count must be non-negative, got %d", f.WorkstreamCount)
	}
	if f.EstimatedTotalHours < 0 {
		return fmt.Errorf("estimated_total_hours must be non-negative, got %v", f.EstimatedTotalHours)
	}
	return nil
}
