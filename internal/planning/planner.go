package planning

import (
	"fmt"
	"math"
	"sort"

	"github.com/travisfleish/staffing-plan-poc/internal/calibration"
	"github.com/travisfleish/staffing-plan-poc/internal/config"
	"github.com/travisfleish/staffing-plan-poc/internal/sow"
)

// weeksPerMonth converts engagement months into planning weeks.
const weeksPerMonth = 4.345

// hoursPerWeek is the full-time weekly capacity before utilization.
const hoursPerWeek = 40.0

// Planner converts a calibrated hour baseline into a concrete per-role
// staffing plan: hours, FTE, headcount, and an engagement window. It holds
// only immutable configuration, so a single Planner serves concurrent
// requests.
type Planner struct {
	roles   config.RolesConfig
	weights config.WeightsConfig
}

// NewPlanner creates a Planner over the given role and weights configuration.
func NewPlanner(roles config.RolesConfig, weights config.WeightsConfig) *Planner {
	return &Planner{roles: roles, weights: weights}
}

// Plan allocates the blended baseline across roles, derives FTE and
// headcount per role, and applies team constraints. Roles that end with
// zero headcount are omitted from the output.
func (p *Planner) Plan(contractID string, cal calibration.Result, features sow.FeatureSet, params Params) (Plan, error) {
	params = params.withDefaults()

	if cal.BlendedBaseline <= 0 {
		return Plan{}, fmt.Errorf("blended baseline must be positive, got %v", cal.BlendedBaseline)
	}

	mix := calibration.Renormalize(cal.RoleMixUsed)
	if len(mix) == 0 {
		return Plan{}, fmt.Errorf("role mix is empty, cannot allocate hours")
	}

	durationWeeks := int(math.Round(features.DurationMonths * params.DurationMultiplier * weeksPerMonth))
	if durationWeeks < 1 {
		durationWeeks = 1
	}

	allocs := make(map[string]*roleAlloc, len(mix))
	var advisories []string
	for role, frac := range mix {
		hours := cal.BlendedBaseline * frac * params.ScopeMultiplier
		util, configured := p.roles.Utilization(role)
		if !configured {
			advisories = append(advisories, fmt.Sprintf("role %q is not configured; using default rate and utilization %.2f", role, util))
		}
		a := &roleAlloc{hours: hours, utilization: util}
		a.recompute(durationWeeks)
		allocs[role] = a
	}

	projectType := p.projectType(features)
	constraintAdvisories, err := p.applyConstraints(allocs, projectType, params.MaxTeamSize, durationWeeks)
	if err != nil {
		return Plan{}, err
	}
	advisories = append(advisories, constraintAdvisories...)

	seniority := p.weights.Seniority(string(features.Complexity))

	entries := make([]Entry, 0, len(allocs))
	for role, a := range allocs {
		if a.people == 0 {
			continue
		}
		rate, _ := p.roles.Rate(role)
		entries = append(entries, Entry{
			ContractID:    contractID,
			Role:          role,
			PlannedHours:  round1(a.hours),
			FTE:           a.fte,
			StartWeek:     1,
			EndWeek:       durationWeeks,
			Seniority:     seniority,
			NumPeople:     a.people,
			HourlyRate:    rate,
			EstimatedCost: round1(a.hours * rate),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PlannedHours != entries[j].PlannedHours {
			return entries[i].PlannedHours > entries[j].PlannedHours
		}
		return entries[i].Role < entries[j].Role
	})
	sort.Strings(advisories)

	return Plan{
		ContractID:    contractID,
		DurationWeeks: durationWeeks,
		Entries:       entries,
		Advisories:    advisories,
	}, nil
}

// projectType classifies the engagement for minimum-team lookup: retainer
// engagements run six months or longer, everything else is a project.
func (p *Planner) projectType(features sow.FeatureSet) string {
	if features.DurationMonths >= 6 {
		return "retainer"
	}
	if p.weights.DefaultProjectType != "" {
		return p.weights.DefaultProjectType
	}
	return "project"
}

// roleAlloc is the mutable per-role working state while planning a single
// request. It never outlives the request.
type roleAlloc struct {
	hours       float64
	utilization float64
	fte         float64
	people      int
	mandatory   bool
}

// recompute derives FTE and headcount from hours over the engagement:
// fte = weekly_hours / (utilization × 40), num_people = ceil(fte). FTE is
// rounded to two decimals before the ceiling so the exported pair stays
// consistent.
func (a *roleAlloc) recompute(durationWeeks int) {
	weekly := a.hours / float64(durationWeeks)
	a.fte = round2(weekly / (a.utilization * hoursPerWeek))
	a.people = int(math.Ceil(a.fte))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
