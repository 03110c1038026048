package sow

import "strings"

// fallbackHours is the fixed estimate table used when no AI estimate is
// available, keyed by complexity.
var fallbackHours = map[Complexity]float64{
	ComplexityLow:    500,
	ComplexityMedium: 800,
	ComplexityHigh:   1200,
}

// highSignalTerms weight the classification toward high complexity.
var highSignalTerms = []string{
	"multi-workstream",
	"global",
	"integrated",
	"enterprise",
	"multi-phase",
	"cross-functional",
	"end-to-end",
}

// lowSignalTerms indicate a narrow, single-service engagement.
var lowSignalTerms = []string{
	"single service",
	"one-off",
	"standalone",
	"limited scope",
	"focused engagement",
}

// annualTerms indicate a year-long retainer engagement.
var annualTerms = []string{
	"retainer",
	"annual",
	"year-long",
	"12 months",
	"12-month",
}

// workstreamCategories groups the workstream vocabulary; the fallback
// workstream count is the number of distinct categories matched.
var workstreamCategories = map[string][]string{
	"creative":   {"creative", "design", "brand", "campaign"},
	"strategy":   {"strategy", "positioning", "planning"},
	"media":      {"media", "advertising", "paid"},
	"analytics":  {"analytics", "data", "measurement", "reporting"},
	"technology": {"technology", "development", "platform", "engineering"},
	"experience": {"experience", "event", "activation", "sponsorship"},
	"operations": {"operations", "production", "delivery"},
}

// FallbackFeatures derives a FeatureSet from the SOW text alone. It is fully
// deterministic and always returns a valid feature set; alpha and beta tune
// how aggressively indicator density escalates the complexity level.
func FallbackFeatures(text string, alpha, beta float64) FeatureSet {
	lower := strings.ToLower(text)

	categories := 0
	for _, keywords := range workstreamCategories {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				categories++
				break
			}
		}
	}

	complexity := classifyComplexity(lower, categories, alpha, beta)

	duration := 4.0
	for _, term := range annualTerms {
		if strings.Contains(lower, term) {
			duration = 6.0
			break
		}
	}

	return FeatureSet{
		Complexity:          complexity,
		DurationMonths:      duration,
		WorkstreamCount:     categories,
		EstimatedTotalHours: fallbackHours[complexity],
		KeyDeliverables:     []string{},
	}
}

func classifyComplexity(lower string, categories int, alpha, beta float64) Complexity {
	highHits := 0
	for _, term := range highSignalTerms {
		if strings.Contains(lower, term) {
			highHits++
		}
	}

	// Escalate when the weighted indicator score crosses 1.0: alpha prices
	// explicit scale markers, beta prices workstream breadth.
	if alpha*float64(highHits)+beta*float64(categories) >= 1.0 {
		return ComplexityHigh
	}

	for _, term := range lowSignalTerms {
		if strings.Contains(lower, term) {
			return ComplexityLow
		}
	}
	return ComplexityMedium
}
