package calibration

import (
	"fmt"
	"math"

	"github.com/travisfleish/staffing-plan-poc/internal/config"
	"github.com/travisfleish/staffing-plan-poc/internal/history"
	"github.com/travisfleish/staffing-plan-poc/internal/sow"
)

// Strategy names the path that produced a calibrated baseline.
type Strategy string

const (
	StrategyBlended  Strategy = "blended"
	StrategyFallback Strategy = "fallback"
)

// Result is the output of one calibration run. All hour figures are >= 0;
// RoleMixUsed sums to 1 within 1e-6.
type Result struct {
	AIEstimate         float64            `json:"ai_estimate"`
	HistoricalBaseline float64            `json:"historical_baseline"`
	CorrectedAI        float64            `json:"corrected_ai"`
	BlendedBaseline    float64            `json:"blended_baseline"`
	Strategy           Strategy           `json:"strategy"`
	RoleMixUsed        map[string]float64 `json:"role_mix_used"`
}

// Kernel converts a similarity score in [0, 1] into an unnormalized match
// weight. It is pluggable so alternative weighting schemes can be
// substituted without touching the blending logic.
type Kernel func(score float64) float64

// InverseDistance is the default kernel: 1 / (1 + distance) with
// distance = 1 - score. Higher similarity yields higher weight.
func InverseDistance(score float64) float64 {
	return 1 / (1 + (1 - score))
}

// Engine blends an AI hour estimate with a weighted historical baseline
// derived from similar contracts.
type Engine struct {
	kernel Kernel
}

// NewEngine creates a calibration engine. A nil kernel selects
// InverseDistance.
func NewEngine(kernel Kernel) *Engine {
	if kernel == nil {
		kernel = InverseDistance
	}
	return &Engine{kernel: kernel}
}

// Calibrate produces the blended hour baseline and role mix for a request.
// defaultMix supplies the configured role mix used when too few similar
// contracts survive the threshold. aiEstimate must be positive whenever no
// historical data exists; the feature-extraction fallback guarantees that
// for well-behaved callers, so a violation here is fatal.
func (e *Engine) Calibrate(features sow.FeatureSet, matches []history.ContractMatch, aiEstimate float64, cfg config.CalibrationConfig, defaultMix map[string]float64) (Result, error) {
	aiValid := aiEstimate > 0 && !math.IsNaN(aiEstimate) && !math.IsInf(aiEstimate, 0)
	if !aiValid && len(matches) == 0 {
		return Result{}, &InsufficientDataError{
			Reason: fmt.Sprintf("no usable AI estimate (%v) and no historical matches", aiEstimate),
		}
	}

	eligible := make([]history.ContractMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= cfg.SimilarityThreshold {
			eligible = append(eligible, m)
		}
	}

	var res Result
	if len(eligible) >= cfg.MinSimilarContracts && len(eligible) > 0 {
		res = e.blend(eligible, aiEstimate, cfg)
	} else {
		res = e.fallback(matches, aiEstimate, aiValid, cfg, defaultMix)
	}
	res.AIEstimate = aiEstimate

	if res.BlendedBaseline <= 0 {
		return Result{}, fmt.Errorf("calibrated baseline must be positive, got %v (upstream contract violation)", res.BlendedBaseline)
	}
	return res, nil
}

// blend computes the kernel-weighted historical baseline and role mix, then
// convexly combines it with the (bias-corrected) AI estimate.
func (e *Engine) blend(eligible []history.ContractMatch, aiEstimate float64, cfg config.CalibrationConfig) Result {
	weights := make([]float64, len(eligible))
	var weightSum float64
	for i, m := range eligible {
		weights[i] = e.kernel(m.Similarity)
		weightSum += weights[i]
	}

	var hist float64
	mix := make(map[string]float64)
	for i, m := range eligible {
		w := weights[i] / weightSum
		hist += w * m.TotalHours
		for role, share := range m.RoleShares {
			mix[role] += w * share
		}
	}

	// Identity bias correction, kept as the extension point for a learned
	// AI-vs-actuals correction factor.
	corrected := aiEstimate

	return Result{
		HistoricalBaseline: hist,
		CorrectedAI:        corrected,
		BlendedBaseline:    cfg.AIConfidence*corrected + cfg.HistoricalConfidence*hist,
		Strategy:           StrategyBlended,
		RoleMixUsed:        Renormalize(mix),
	}
}

// fallback picks a baseline when too few comparable contracts exist. The
// historical side, if any matches exist at all (even below threshold), is
// their simple mean.
func (e *Engine) fallback(matches []history.ContractMatch, aiEstimate float64, aiValid bool, cfg config.CalibrationConfig, defaultMix map[string]float64) Result {
	var hist float64
	histKnown := len(matches) > 0
	if histKnown {
		for _, m := range matches {
			hist += m.TotalHours
		}
		hist /= float64(len(matches))
	}

	var baseline float64
	switch {
	case !aiValid:
		baseline = hist
	case !histKnown:
		baseline = aiEstimate
	default:
		switch cfg.FallbackStrategy {
		case config.FallbackAIOnly:
			baseline = aiEstimate
		case config.FallbackMax:
			baseline = math.Max(aiEstimate, hist)
		default: // conservative
			baseline = math.Min(aiEstimate, hist)
		}
	}

	return Result{
		HistoricalBaseline: hist,
		CorrectedAI:        aiEstimate,
		BlendedBaseline:    baseline,
		Strategy:           StrategyFallback,
		RoleMixUsed:        Renormalize(defaultMix),
	}
}

// Renormalize returns a copy of mix scaled so its fractions sum to 1.
// Non-positive entries are dropped; an empty or degenerate mix returns an
// empty map.
func Renormalize(mix map[string]float64) map[string]float64 {
	var sum float64
	for _, frac := range mix {
		if frac > 0 {
			sum += frac
		}
	}
	out := make(map[string]float64, len(mix))
	if sum <= 0 {
		return out
	}
	for role, frac := range mix {
		if frac > 0 {
			out[role] = frac / sum
		}
	}
	return out
}
