package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrPlanNotFound is returned by GetPlan and PlanVariance for unknown IDs.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRecord is a persisted staffing plan with its per-role entries.
type PlanRecord struct {
	ID              string
	ContractID      string
	Strategy        string
	BlendedBaseline float64
	CreatedAt       time.Time
	Entries         []PlanEntryRow
}

// PlanEntryRow is one role row of a persisted plan.
type PlanEntryRow struct {
	Role          string
	PlannedHours  float64
	FTE           float64
	StartWeek     int
	EndWeek       int
	Seniority     string
	NumPeople     int
	HourlyRate    float64
	EstimatedCost float64
}

// SavePlan persists a plan and its entries in one transaction.
func (s *Store) SavePlan(p PlanRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning plan insert: %w", err)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.Exec(
		`INSERT INTO plans (id, contract_id, strategy, blended_baseline, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.ContractID, p.Strategy, p.BlendedBaseline, createdAt.Format(time.RFC3339),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting plan %s: %w", p.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO plan_entries (plan_id, role, planned_hours, fte, start_week, end_week, seniority_level, num_people, hourly_rate, estimated_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range p.Entries {
		if _, err := stmt.Exec(p.ID, e.Role, e.PlannedHours, e.FTE, e.StartWeek, e.EndWeek, e.Seniority, e.NumPeople, e.HourlyRate, e.EstimatedCost); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting entry %s/%s: %w", p.ID, e.Role, err)
		}
	}

	return tx.Commit()
}

// GetPlan loads a persisted plan by ID. Entries are ordered by descending
// planned hours, matching plan output order.
func (s *Store) GetPlan(id string) (PlanRecord, error) {
	var p PlanRecord
	var createdAt string
	err := s.db.QueryRow(
		`SELECT id, contract_id, strategy, blended_baseline, created_at FROM plans WHERE id = ?`, id,
	).Scan(&p.ID, &p.ContractID, &p.Strategy, &p.BlendedBaseline, &createdAt)
	if err == sql.ErrNoRows {
		return PlanRecord{}, ErrPlanNotFound
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("loading plan %s: %w", id, err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	p.CreatedAt = t

	rows, err := s.db.Query(`
		SELECT role, planned_hours, fte, start_week, end_week, seniority_level, num_people, hourly_rate, estimated_cost
		FROM plan_entries WHERE plan_id = ? ORDER BY planned_hours DESC, role ASC`, id)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("loading plan entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e PlanEntryRow
		if err := rows.Scan(&e.Role, &e.PlannedHours, &e.FTE, &e.StartWeek, &e.EndWeek, &e.Seniority, &e.NumPeople, &e.HourlyRate, &e.EstimatedCost); err != nil {
			return PlanRecord{}, fmt.Errorf("scanning plan entry: %w", err)
		}
		p.Entries = append(p.Entries, e)
	}
	return p, rows.Err()
}

// VarianceRow compares one role's planned hours against recorded actuals.
type VarianceRow struct {
	Role          string
	PlannedHours  float64
	ActualHours   float64
	VarianceHours float64
	VariancePct   float64
}

// PlanVariance compares a persisted plan against the historical hours
// recorded for its contract. Roles with no actuals report a 100% variance.
func (s *Store) PlanVariance(planID string) ([]VarianceRow, error) {
	plan, err := s.GetPlan(planID)
	if err != nil {
		return nil, err
	}

	actuals, err := s.RoleActuals(plan.ContractID)
	if err != nil {
		return nil, err
	}

	out := make([]VarianceRow, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		actual := actuals[e.Role]
		v := VarianceRow{
			Role:          e.Role,
			PlannedHours:  e.PlannedHours,
			ActualHours:   actual,
			VarianceHours: e.PlannedHours - actual,
		}
		if actual > 0 {
			v.VariancePct = v.VarianceHours / actual * 100
		} else {
			v.VariancePct = 100
		}
		out = append(out, v)
	}
	return out, nil
}
