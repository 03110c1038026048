package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/travisfleish/staffing-plan-poc/internal/calibration"
	"github.com/travisfleish/staffing-plan-poc/internal/config"
	"github.com/travisfleish/staffing-plan-poc/internal/history"
	"github.com/travisfleish/staffing-plan-poc/internal/index"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
	"github.com/travisfleish/staffing-plan-poc/internal/sow"
	"github.com/travisfleish/staffing-plan-poc/internal/storage"
)

// PlanRequest is one plan-generation request.
type PlanRequest struct {
	ContractID string
	SOWText    string
	Params     planning.Params
}

// PlanResult carries the generated plan plus the intermediate artifacts of
// the run, for callers that want to show their work.
type PlanResult struct {
	PlanID      string                  `json:"plan_id"`
	Features    sow.FeatureSet          `json:"features"`
	Matches     []history.ContractMatch `json:"matches"`
	Calibration calibration.Result      `json:"calibration"`
	Plan        planning.Plan           `json:"plan"`
	DurationMs  int64                   `json:"duration_ms"`
}

// Pipeline orchestrates plan generation: feature extraction, similarity
// search, calibration, planning, and persistence. It holds no per-request
// state; one Pipeline serves concurrent requests.
type Pipeline struct {
	extractor  *sow.Extractor
	searcher   *index.Searcher
	calibrator *calibration.Engine
	planner    *planning.Planner
	store      *storage.Store
	mapper     history.ContractMapper
	calCfg     config.CalibrationConfig
	defaultMix map[string]float64
	topK       int
}

// New creates a Pipeline wired to all components. topK controls how many
// similar contracts are retrieved (default 5 if <= 0).
func New(
	extractor *sow.Extractor,
	searcher *index.Searcher,
	calibrator *calibration.Engine,
	planner *planning.Planner,
	store *storage.Store,
	mapper history.ContractMapper,
	weights config.WeightsConfig,
	topK int,
) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		extractor:  extractor,
		searcher:   searcher,
		calibrator: calibrator,
		planner:    planner,
		store:      store,
		mapper:     mapper,
		calCfg:     weights.Calibration,
		defaultMix: weights.RoleMix,
		topK:       topK,
	}
}

// GeneratePlan runs the full pipeline on a SOW:
//  1. Extract features (degrades to the deterministic fallback, never fails)
//  2. Find similar indexed contracts and aggregate their historical hours
//  3. Calibrate the hour baseline against that history
//  4. Allocate the baseline into a constrained staffing plan
//  5. Persist the plan
//
// Search failures degrade to calibration without history; calibration and
// planning errors are fatal and surface to the caller.
func (p *Pipeline) GeneratePlan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	start := time.Now()

	features := p.extractor.Extract(ctx, req.SOWText)

	hits, err := p.searcher.Search(ctx, req.SOWText, p.topK)
	if err != nil {
		slog.Warn("similarity search failed, calibrating without history", "contract_id", req.ContractID, "error", err)
		hits = nil
	}

	matches, err := history.BuildMatches(p.store, p.mapper, hits)
	if err != nil {
		return PlanResult{}, fmt.Errorf("aggregating historical matches: %w", err)
	}

	cal, err := p.calibrator.Calibrate(features, matches, features.EstimatedTotalHours, p.calCfg, p.defaultMix)
	if err != nil {
		return PlanResult{}, err
	}

	plan, err := p.planner.Plan(req.ContractID, cal, features, req.Params)
	if err != nil {
		return PlanResult{}, err
	}

	planID := uuid.New().String()
	if err := p.store.SavePlan(planRecord(planID, plan, cal)); err != nil {
		return PlanResult{}, fmt.Errorf("persisting plan: %w", err)
	}

	slog.Debug("plan generated",
		"plan_id", planID,
		"contract_id", req.ContractID,
		"strategy", cal.Strategy,
		"matches", len(matches),
		"roles", len(plan.Entries),
	)

	return PlanResult{
		PlanID:      planID,
		Features:    features,
		Matches:     matches,
		Calibration: cal,
		Plan:        plan,
		DurationMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Similar returns the top-K indexed contracts most similar to the given SOW
// text, with their aggregated historical hours where recorded.
func (p *Pipeline) Similar(ctx context.Context, sowText string, topK int) ([]history.ContractMatch, error) {
	if topK <= 0 {
		topK = p.topK
	}
	hits, err := p.searcher.Search(ctx, sowText, topK)
	if err != nil {
		return nil, fmt.Errorf("searching similar contracts: %w", err)
	}
	return history.BuildMatches(p.store, p.mapper, hits)
}

// IndexContract adds a historical SOW to the similarity index.
func (p *Pipeline) IndexContract(ctx context.Context, contractID, title, text string) error {
	return p.searcher.Index(ctx, contractID, title, text)
}

// IndexContracts adds a batch of historical SOWs to the similarity index,
// embedding them concurrently.
func (p *Pipeline) IndexContracts(ctx context.Context, docs []index.Doc) error {
	return p.searcher.IndexAll(ctx, docs)
}

// ImportHours stores a parsed batch of historical hours records and returns
// how many rows were written.
func (p *Pipeline) ImportHours(records []history.Record) (int, error) {
	rows := make([]storage.HoursRow, len(records))
	for i, r := range records {
		rows[i] = storage.HoursRow{
			ContractID:     r.ContractID,
			PersonID:       r.PersonID,
			Role:           r.Role,
			WeekStart:      r.WeekStart,
			ActualHours:    r.ActualHours,
			UtilizationPct: r.UtilizationPct,
		}
	}
	if err := p.store.InsertHours(rows); err != nil {
		return 0, fmt.Errorf("importing hours: %w", err)
	}
	return len(rows), nil
}

// planRecord flattens a plan and its calibration into the persisted shape.
func planRecord(planID string, plan planning.Plan, cal calibration.Result) storage.PlanRecord {
	entries := make([]storage.PlanEntryRow, len(plan.Entries))
	for i, e := range plan.Entries {
		entries[i] = storage.PlanEntryRow{
			Role:          e.Role,
			PlannedHours:  e.PlannedHours,
			FTE:           e.FTE,
			StartWeek:     e.StartWeek,
			EndWeek:       e.EndWeek,
			Seniority:     e.Seniority,
			NumPeople:     e.NumPeople,
			HourlyRate:    e.HourlyRate,
			EstimatedCost: e.EstimatedCost,
		}
	}
	return storage.PlanRecord{
		ID:              planID,
		ContractID:      plan.ContractID,
		Strategy:        string(cal.Strategy),
		BlendedBaseline: cal.BlendedBaseline,
		Entries:         entries,
	}
}
