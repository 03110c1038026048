package storage

import (
	"fmt"
	"time"
)

// HoursRow is one historical hours record as stored in the hours table.
type HoursRow struct {
	ContractID     string
	PersonID       string
	Role           string
	WeekStart      time.Time
	ActualHours    float64
	UtilizationPct float64
}

// InsertHours appends a batch of historical hours records in one transaction.
func (s *Store) InsertHours(rows []HoursRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning hours insert: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO hours (contract_id, person_id, role, week_start, actual_hours, utilization_pct)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing hours insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.Exec(r.ContractID, r.PersonID, r.Role, r.WeekStart.Format("2006-01-02"), r.ActualHours, r.UtilizationPct); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting hours row %d (%s): %w", i, r.ContractID, err)
		}
	}

	return tx.Commit()
}

// TotalHours returns the summed actual hours for a contract. A contract with
// no records returns 0 without error.
func (s *Store) TotalHours(contractID string) (float64, error) {
	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(actual_hours), 0) FROM hours WHERE contract_id = ?`, contractID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("aggregating hours for %s: %w", contractID, err)
	}
	return total, nil
}

// RoleActuals returns role -> summed actual hours for a contract.
func (s *Store) RoleActuals(contractID string) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT role, SUM(actual_hours) FROM hours WHERE contract_id = ? GROUP BY role`, contractID)
	if err != nil {
		return nil, fmt.Errorf("aggregating role hours for %s: %w", contractID, err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var role string
		var hours float64
		if err := rows.Scan(&role, &hours); err != nil {
			return nil, fmt.Errorf("scanning role hours: %w", err)
		}
		out[role] = hours
	}
	return out, rows.Err()
}

// RoleShares returns the fraction of a contract's total hours attributed to
// each role; fractions sum to 1. A contract with no recorded hours returns
// an empty map.
func (s *Store) RoleShares(contractID string) (map[string]float64, error) {
	actuals, err := s.RoleActuals(contractID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, h := range actuals {
		total += h
	}
	if total <= 0 {
		return map[string]float64{}, nil
	}

	shares := make(map[string]float64, len(actuals))
	for role, h := range actuals {
		shares[role] = h / total
	}
	return shares, nil
}

// HoursCount returns the number of stored hours records.
func (s *Store) HoursCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM hours`).Scan(&n)
	return n, err
}
