package planning

import "fmt"

// Entry is one role row of a staffing plan. Entries are immutable outputs;
// the exported row set matches the tabular plan interface.
type Entry struct {
	ContractID    string  `json:"contract_id"`
	Role          string  `json:"role"`
	PlannedHours  float64 `json:"planned_hours"`
	FTE           float64 `json:"fte"`
	StartWeek     int     `json:"start_week"`
	EndWeek       int     `json:"end_week"`
	Seniority     string  `json:"seniority_level"`
	NumPeople     int     `json:"num_people"`
	HourlyRate    float64 `json:"hourly_rate"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Plan is a generated staffing plan with any non-fatal advisories raised
// while producing it.
type Plan struct {
	ContractID    string   `json:"contract_id"`
	DurationWeeks int      `json:"duration_weeks"`
	Entries       []Entry  `json:"entries"`
	Advisories    []string `json:"advisories,omitempty"`
}

// Params are the per-request planning knobs. Zero values select the
// defaults: multipliers of 1 and a maximum team size of 8.
type Params struct {
	DurationMultiplier float64
	ScopeMultiplier    float64
	MaxTeamSize        int
}

func (p Params) withDefaults() Params {
	if p.DurationMultiplier <= 0 {
		p.DurationMultiplier = 1
	}
	if p.ScopeMultiplier <= 0 {
		p.ScopeMultiplier = 1
	}
	if p.MaxTeamSize <= 0 {
		p.MaxTeamSize = 8
	}
	return p
}

// ConstraintViolation reports a constraint conflict that cannot be silently
// resolved: the mandatory minimum team already exceeds the maximum team
// size.
type ConstraintViolation struct {
	Rule        string
	ProjectType string
	Mandatory   int
	MaxTeamSize int
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation (%s): %d mandatory roles for project type %q exceed max team size %d",
		e.Rule, e.Mandatory, e.ProjectType, e.MaxTeamSize)
}
