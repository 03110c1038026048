package planning

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/travisfleish/staffing-plan-poc/internal/sow"
)

func TestMandatoryRoleRaised(t *testing.T) {
	// A six-month engagement is a retainer; the retainer minimum team
	// includes a copywriter, so a mix without one still staffs one.
	p := NewPlanner(testRoles(), testWeights())
	cal := calResult(2000, map[string]float64{"designer": 0.7, "account_manager": 0.3})

	plan, err := p.Plan("C-1", cal, features(6, sow.ComplexityMedium), Params{MaxTeamSize: 8})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	cw := entryByRole(t, plan, "copywriter")
	if cw.NumPeople != 1 {
		t.Fatalf("copywriter NumPeople = %d, want raised to 1", cw.NumPeople)
	}
	if cw.FTE != 1.0 {
		t.Errorf("copywriter FTE = %v, want 1.0", cw.FTE)
	}
	// One person full-time at 0.8 utilization over the 26-week window.
	wantHours := round1(1.0 * 0.8 * 40 * 26)
	if cw.PlannedHours != wantHours {
		t.Errorf("copywriter PlannedHours = %v, want %v", cw.PlannedHours, wantHours)
	}

	found := false
	for _, adv := range plan.Advisories {
		if strings.Contains(adv, `"copywriter"`) && strings.Contains(adv, "mandatory") {
			found = true
		}
	}
	if !found {
		t.Errorf("no advisory for the raised role, got %v", plan.Advisories)
	}
}

func TestMandatoryRolesSurviveShrink(t *testing.T) {
	// With maxTeamSize below the natural team, only non-mandatory roles may
	// be dropped; the retainer minimum team stays intact.
	p := NewPlanner(testRoles(), testWeights())
	cal := calResult(8000, map[string]float64{
		"designer":        0.4,
		"copywriter":      0.25,
		"account_manager": 0.2,
		"producer":        0.15,
	})

	plan, err := p.Plan("C-1", cal, features(6, sow.ComplexityMedium), Params{MaxTeamSize: 3})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(plan.Entries) > 3 {
		t.Fatalf("team size = %d, want <= 3", len(plan.Entries))
	}
	for _, role := range []string{"account_manager", "designer", "copywriter"} {
		e := entryByRole(t, plan, role)
		if e.NumPeople < 1 {
			t.Errorf("mandatory role %q has NumPeople = %d, want >= 1", role, e.NumPeople)
		}
	}
	for _, e := range plan.Entries {
		if e.Role == "producer" {
			t.Error("producer should have been dropped")
		}
	}
}

func TestShrinkDropsLowestHoursAndRedistributes(t *testing.T) {
	// No mandatory roles for "project": the lowest-hour role is dropped and
	// its hours flow to the survivors in proportion to their shares.
	weights := testWeights()
	weights.MinTeamComposition = map[string]map[string]int{}
	p := NewPlanner(testRoles(), weights)

	cal := calResult(1000, map[string]float64{
		"designer":        0.5,
		"copywriter":      0.3,
		"account_manager": 0.2,
	})

	plan, err := p.Plan("C-1", cal, features(4, sow.ComplexityMedium), Params{MaxTeamSize: 2})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(plan.Entries) != 2 {
		t.Fatalf("team size = %d, want 2: %+v", len(plan.Entries), plan.Entries)
	}
	for _, e := range plan.Entries {
		if e.Role == "account_manager" {
			t.Fatal("lowest-hour role account_manager should have been dropped")
		}
	}

	// 200 freed hours split 500:300 across the survivors.
	d := entryByRole(t, plan, "designer")
	cw := entryByRole(t, plan, "copywriter")
	if math.Abs(d.PlannedHours-625) > 0.1 {
		t.Errorf("designer PlannedHours = %v, want 625", d.PlannedHours)
	}
	if math.Abs(cw.PlannedHours-375) > 0.1 {
		t.Errorf("copywriter PlannedHours = %v, want 375", cw.PlannedHours)
	}

	var total float64
	for _, e := range plan.Entries {
		total += e.PlannedHours
	}
	if math.Abs(total-1000) > 0.5 {
		t.Errorf("total planned hours = %v, want preserved 1000", total)
	}

	found := false
	for _, adv := range plan.Advisories {
		if strings.Contains(adv, `"account_manager"`) && strings.Contains(adv, "dropped") {
			found = true
		}
	}
	if !found {
		t.Errorf("no advisory for the dropped role, got %v", plan.Advisories)
	}
}

func TestMandatoryExceedsMaxTeamSize(t *testing.T) {
	// Three mandatory retainer roles cannot fit a team of two; that conflict
	// is fatal, not silently resolved.
	p := NewPlanner(testRoles(), testWeights())
	cal := calResult(2000, map[string]float64{"designer": 1})

	_, err := p.Plan("C-1", cal, features(6, sow.ComplexityMedium), Params{MaxTeamSize: 2})
	if err == nil {
		t.Fatal("expected constraint violation")
	}
	var cv *ConstraintViolation
	if !errors.As(err, &cv) {
		t.Fatalf("error type = %T, want *ConstraintViolation", err)
	}
	if cv.Rule != "min_team_composition" {
		t.Errorf("Rule = %q, want min_team_composition", cv.Rule)
	}
	if cv.Mandatory != 3 || cv.MaxTeamSize != 2 {
		t.Errorf("violation = %+v, want 3 mandatory vs max 2", cv)
	}
}

func TestShrinkLoopConverges(t *testing.T) {
	// Five non-mandatory roles squeezed down to one still terminates and
	// keeps the highest-hour role.
	weights := testWeights()
	weights.MinTeamComposition = map[string]map[string]int{}
	p := NewPlanner(testRoles(), weights)

	cal := calResult(5000, map[string]float64{
		"designer":        0.3,
		"copywriter":      0.25,
		"account_manager": 0.2,
		"producer":        0.15,
		"strategist":      0.1,
	})

	plan, err := p.Plan("C-1", cal, features(4, sow.ComplexityMedium), Params{MaxTeamSize: 1})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("team size = %d, want 1", len(plan.Entries))
	}
	if plan.Entries[0].Role != "designer" {
		t.Errorf("survivor = %q, want the highest-hour role designer", plan.Entries[0].Role)
	}
	if math.Abs(plan.Entries[0].PlannedHours-5000) > 0.5 {
		t.Errorf("survivor hours = %v, want all 5000", plan.Entries[0].PlannedHours)
	}
}
