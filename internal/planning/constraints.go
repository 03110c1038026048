package planning

import (
	"fmt"
	"sort"
)

// applyConstraints enforces team-composition rules on the per-role
// allocations, in order: (1) raise mandatory roles to their minimum
// headcount, (2) shrink the team to maxTeamSize by dropping the
// lowest-hour non-mandatory roles and redistributing their hours, (3)
// report what changed as non-fatal advisories.
func (p *Planner) applyConstraints(allocs map[string]*roleAlloc, projectType string, maxTeamSize int, durationWeeks int) ([]string, error) {
	var advisories []string

	minTeam := p.weights.MinTeam(projectType)

	mandatoryCount := 0
	for _, minPeople := range minTeam {
		if minPeople > 0 {
			mandatoryCount++
		}
	}
	if mandatoryCount > maxTeamSize {
		return nil, &ConstraintViolation{
			Rule:        "min_team_composition",
			ProjectType: projectType,
			Mandatory:   mandatoryCount,
			MaxTeamSize: maxTeamSize,
		}
	}

	// Rule 1: raise mandatory roles. A raised role gets the hours of its
	// minimum headcount working full-time at the role's utilization target.
	for role, minPeople := range minTeam {
		if minPeople <= 0 {
			continue
		}
		a, ok := allocs[role]
		if !ok {
			util, configured := p.roles.Utilization(role)
			if !configured {
				advisories = append(advisories, fmt.Sprintf("role %q is not configured; using default rate and utilization %.2f", role, util))
			}
			a = &roleAlloc{utilization: util}
			allocs[role] = a
		}
		a.mandatory = true
		if a.people < minPeople {
			advisories = append(advisories, fmt.Sprintf("raised %q to the mandatory minimum of %d for project type %q", role, minPeople, projectType))
			a.people = minPeople
			a.fte = float64(minPeople)
			a.hours = a.fte * a.utilization * hoursPerWeek * float64(durationWeeks)
		}
	}

	// Rule 2: shrink to maxTeamSize. Drop the lowest-hour droppable role
	// and hand its hours to the survivors in proportion to their existing
	// mix, until the team fits.
	for {
		var active, droppable []string
		for role, a := range allocs {
			if a.people == 0 {
				continue
			}
			active = append(active, role)
			if !a.mandatory {
				droppable = append(droppable, role)
			}
		}
		if len(active) <= maxTeamSize {
			break
		}
		if len(droppable) == 0 {
			// Unreachable when the mandatory pre-check passed, kept as a
			// guard against inconsistent allocs.
			return nil, &ConstraintViolation{
				Rule:        "max_team_size",
				ProjectType: projectType,
				Mandatory:   len(active),
				MaxTeamSize: maxTeamSize,
			}
		}

		sort.Slice(droppable, func(i, j int) bool {
			if allocs[droppable[i]].hours != allocs[droppable[j]].hours {
				return allocs[droppable[i]].hours < allocs[droppable[j]].hours
			}
			return droppable[i] < droppable[j]
		})
		victim := droppable[0]
		freed := allocs[victim].hours
		allocs[victim].hours = 0
		allocs[victim].fte = 0
		allocs[victim].people = 0

		var remaining float64
		for role, a := range allocs {
			if role != victim && a.people > 0 {
				remaining += a.hours
			}
		}
		for role, a := range allocs {
			if role == victim || a.people == 0 {
				continue
			}
			if remaining > 0 {
				a.hours += freed * (a.hours / remaining)
			} else {
				a.hours += freed / float64(len(active)-1)
			}
			a.recompute(durationWeeks)
		}

		advisories = append(advisories, fmt.Sprintf("dropped %q to satisfy max team size %d; hours redistributed", victim, maxTeamSize))
	}

	return advisories, nil
}
