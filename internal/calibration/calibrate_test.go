package calibration

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/travisfleish/staffing-plan-poc/internal/config"
	"github.com/travisfleish/staffing-plan-poc/internal/history"
	"github.com/travisfleish/staffing-plan-poc/internal/sow"
)

var testFeatures = sow.FeatureSet{
	Complexity:          sow.ComplexityHigh,
	DurationMonths:      12,
	WorkstreamCount:     4,
	EstimatedTotalHours: 9600,
	KeyDeliverables:     []string{},
}

func testCfg() config.CalibrationConfig {
	return config.CalibrationConfig{
		AIConfidence:         0.3,
		HistoricalConfidence: 0.7,
		MinSimilarContracts:  2,
		SimilarityThreshold:  0.3,
		FallbackStrategy:     config.FallbackConservative,
	}
}

var defaultMix = map[string]float64{"designer": 0.5, "copywriter": 0.3, "account_manager": 0.2}

func match(id string, sim, total float64, shares map[string]float64) history.ContractMatch {
	return history.ContractMatch{ContractID: id, Similarity: sim, TotalHours: total, RoleShares: shares}
}

func TestBlendedScenario(t *testing.T) {
	// Two identical-similarity matches averaging to 8800 historical hours,
	// blended 0.3/0.7 with an AI estimate of 9600 gives exactly 9040.
	e := NewEngine(nil)
	matches := []history.ContractMatch{
		match("C-300", 0.8, 8000, map[string]float64{"designer": 0.6, "copywriter": 0.4}),
		match("C-301", 0.8, 9600, map[string]float64{"designer": 0.5, "copywriter": 0.5}),
	}

	res, err := e.Calibrate(testFeatures, matches, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	if res.Strategy != StrategyBlended {
		t.Errorf("Strategy = %q, want blended", res.Strategy)
	}
	if math.Abs(res.HistoricalBaseline-8800) > 1e-9 {
		t.Errorf("HistoricalBaseline = %v, want 8800", res.HistoricalBaseline)
	}
	if math.Abs(res.BlendedBaseline-9040) > 1e-9 {
		t.Errorf("BlendedBaseline = %v, want 9040", res.BlendedBaseline)
	}
	if res.CorrectedAI != 9600 {
		t.Errorf("CorrectedAI = %v, want identity passthrough 9600", res.CorrectedAI)
	}

	// Equal weights: mix is the plain average of the two share maps.
	if math.Abs(res.RoleMixUsed["designer"]-0.55) > 1e-9 {
		t.Errorf("RoleMixUsed[designer] = %v, want 0.55", res.RoleMixUsed["designer"])
	}
}

func TestBlendedBounds(t *testing.T) {
	// For confidences summing to 1, the blend lies between the AI and
	// historical figures regardless of their order.
	e := NewEngine(nil)
	cases := []struct{ ai, hist float64 }{
		{9600, 8800},
		{500, 8800},
		{8800, 8800},
	}
	for _, tc := range cases {
		matches := []history.ContractMatch{
			match("A", 0.9, tc.hist, map[string]float64{"designer": 1}),
			match("B", 0.9, tc.hist, map[string]float64{"designer": 1}),
		}
		res, err := e.Calibrate(testFeatures, matches, tc.ai, testCfg(), defaultMix)
		if err != nil {
			t.Fatalf("Calibrate(%v, %v): %v", tc.ai, tc.hist, err)
		}
		lo, hi := math.Min(tc.ai, tc.hist), math.Max(tc.ai, tc.hist)
		if res.BlendedBaseline < lo-1e-9 || res.BlendedBaseline > hi+1e-9 {
			t.Errorf("blend %v outside [%v, %v]", res.BlendedBaseline, lo, hi)
		}
	}
}

func TestThresholdExcludesMatches(t *testing.T) {
	// The below-threshold match has wildly different hours; it must not
	// move the baseline or the mix.
	e := NewEngine(nil)
	above := []history.ContractMatch{
		match("C-300", 0.9, 8000, map[string]float64{"designer": 1}),
		match("C-301", 0.9, 8000, map[string]float64{"designer": 1}),
	}
	withNoise := append([]history.ContractMatch{
		match("C-999", 0.1, 100000, map[string]float64{"producer": 1}),
	}, above...)

	clean, err := e.Calibrate(testFeatures, above, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}
	noisy, err := e.Calibrate(testFeatures, withNoise, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}

	if clean.HistoricalBaseline != noisy.HistoricalBaseline {
		t.Errorf("below-threshold match moved the baseline: %v vs %v", clean.HistoricalBaseline, noisy.HistoricalBaseline)
	}
	if !reflect.DeepEqual(clean.RoleMixUsed, noisy.RoleMixUsed) {
		t.Errorf("below-threshold match moved the mix: %v vs %v", clean.RoleMixUsed, noisy.RoleMixUsed)
	}
}

func TestKernelWeighting(t *testing.T) {
	// The closer match (higher similarity) must pull the baseline toward
	// its hours.
	e := NewEngine(nil)
	matches := []history.ContractMatch{
		match("near", 0.95, 10000, map[string]float64{"designer": 1}),
		match("far", 0.35, 2000, map[string]float64{"designer": 1}),
	}
	res, err := e.Calibrate(testFeatures, matches, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}
	mean := 6000.0
	if res.HistoricalBaseline <= mean {
		t.Errorf("HistoricalBaseline = %v, want > unweighted mean %v", res.HistoricalBaseline, mean)
	}
}

func TestFallbackAIOnlyAvailable(t *testing.T) {
	e := NewEngine(nil)
	cfg := testCfg()
	cfg.MinSimilarContracts = 1

	res, err := e.Calibrate(testFeatures, nil, 800, cfg, defaultMix)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if res.Strategy != StrategyFallback {
		t.Errorf("Strategy = %q, want fallback", res.Strategy)
	}
	if res.BlendedBaseline != 800 {
		t.Errorf("BlendedBaseline = %v, want 800", res.BlendedBaseline)
	}
	if !reflect.DeepEqual(res.RoleMixUsed, Renormalize(defaultMix)) {
		t.Errorf("RoleMixUsed = %v, want configured mix", res.RoleMixUsed)
	}
}

func TestFallbackStrategies(t *testing.T) {
	// One match below threshold: not enough to blend, but its hours still
	// feed the fallback baseline as a simple mean.
	matches := []history.ContractMatch{
		match("C-300", 0.2, 600, map[string]float64{"designer": 1}),
	}

	cases := []struct {
		strategy string
		want     float64
	}{
		{config.FallbackConservative, 600},
		{config.FallbackAIOnly, 800},
		{config.FallbackMax, 800},
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			e := NewEngine(nil)
			cfg := testCfg()
			cfg.FallbackStrategy = tc.strategy

			res, err := e.Calibrate(testFeatures, matches, 800, cfg, defaultMix)
			if err != nil {
				t.Fatalf("Calibrate: %v", err)
			}
			if res.Strategy != StrategyFallback {
				t.Errorf("Strategy = %q, want fallback", res.Strategy)
			}
			if res.BlendedBaseline != tc.want {
				t.Errorf("BlendedBaseline = %v, want %v", res.BlendedBaseline, tc.want)
			}
		})
	}
}

func TestInsufficientData(t *testing.T) {
	e := NewEngine(nil)

	_, err := e.Calibrate(testFeatures, nil, 0, testCfg(), defaultMix)
	if err == nil {
		t.Fatal("expected error with no estimate and no history")
	}
	var ide *InsufficientDataError
	if !errors.As(err, &ide) {
		t.Errorf("error type = %T, want *InsufficientDataError", err)
	}
}

func TestInvalidAIWithHistory(t *testing.T) {
	// A missing AI estimate with usable history falls back to the
	// historical mean instead of failing.
	e := NewEngine(nil)
	matches := []history.ContractMatch{
		match("C-300", 0.2, 600, map[string]float64{"designer": 1}),
	}

	res, err := e.Calibrate(testFeatures, matches, 0, testCfg(), defaultMix)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if res.BlendedBaseline != 600 {
		t.Errorf("BlendedBaseline = %v, want historical 600", res.BlendedBaseline)
	}
}

func TestRoleMixAlwaysNormalized(t *testing.T) {
	e := NewEngine(nil)
	matches := []history.ContractMatch{
		match("C-300", 0.9, 8000, map[string]float64{"designer": 0.7, "copywriter": 0.2}), // sums to 0.9
		match("C-301", 0.5, 4000, map[string]float64{"producer": 1.0}),
	}
	res, err := e.Calibrate(testFeatures, matches, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}

	var sum float64
	for _, frac := range res.RoleMixUsed {
		sum += frac
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("RoleMixUsed sums to %v, want 1 ± 1e-6", sum)
	}
}

func TestDeterminism(t *testing.T) {
	e := NewEngine(nil)
	matches := []history.ContractMatch{
		match("C-300", 0.9, 8000, map[string]float64{"designer": 0.6, "copywriter": 0.4}),
		match("C-301", 0.7, 6000, map[string]float64{"designer": 0.5, "producer": 0.5}),
	}

	a, err := e.Calibrate(testFeatures, matches, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Calibrate(testFeatures, matches, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical inputs produced different results:\n%+v\n%+v", a, b)
	}
}

func TestCustomKernel(t *testing.T) {
	// A uniform kernel turns the weighted baseline into a plain mean.
	uniform := func(score float64) float64 { return 1 }
	e := NewEngine(uniform)
	matches := []history.ContractMatch{
		match("A", 0.95, 10000, map[string]float64{"designer": 1}),
		match("B", 0.35, 2000, map[string]float64{"designer": 1}),
	}
	res, err := e.Calibrate(testFeatures, matches, 9600, testCfg(), defaultMix)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.HistoricalBaseline-6000) > 1e-9 {
		t.Errorf("uniform kernel baseline = %v, want 6000", res.HistoricalBaseline)
	}
}
