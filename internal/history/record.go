package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Record is one historical hours entry: what one person billed to one
// contract in one week. Records are loaded as a read-only batch and never
// mutated.
type Record struct {
	ContractID     string
	PersonID       string
	Role           string
	WeekStart      time.Time
	ActualHours    float64
	UtilizationPct float64
}

// requiredColumns lists the header names the hours CSV must carry, in any
// order.
var requiredColumns = []string{"contract_id", "person_id", "role", "week_start", "actual_hours", "utilization_pct"}

// ParseCSV reads the historical hours table described in the external
// interface: columns contract_id, person_id, role, week_start (YYYY-MM-DD),
// actual_hours (>= 0), utilization_pct ([0, 1]). Header names are
// normalized (trimmed, lowercased) and may appear in any order. Any invalid
// row fails the whole batch.
func ParseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty hours file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q in hours file", name)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line+1, err)
		}
		line++

		rec, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("hours file has a header but no rows")
	}
	return records, nil
}

func parseRow(row []string, col map[string]int) (Record, error) {
	field := func(name string) string {
		return strings.TrimSpace(row[col[name]])
	}

	rec := Record{
		ContractID: field("contract_id"),
		PersonID:   field("person_id"),
		Role:       strings.ToLower(field("role")),
	}
	if rec.ContractID == "" {
		return Record{}, fmt.Errorf("contract_id must not be empty")
	}
	if rec.Role == "" {
		return Record{}, fmt.Errorf("role must not be empty")
	}

	week, err := time.Parse("2006-01-02", field("week_start"))
	if err != nil {
		return Record{}, fmt.Errorf("invalid week_start %q: %w", field("week_start"), err)
	}
	rec.WeekStart = week

	hours, err := strconv.ParseFloat(field("actual_hours"), 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid actual_hours %q: %w", field("actual_hours"), err)
	}
	if hours < 0 {
		return Record{}, fmt.Errorf("actual_hours must be >= 0, got %v", hours)
	}
	rec.ActualHours = hours

	util, err := strconv.ParseFloat(field("utilization_pct"), 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid utilization_pct %q: %w", field("utilization_pct"), err)
	}
	if util < 0 || util > 1 {
		return Record{}, fmt.Errorf("utilization_pct must be in [0, 1], got %v", util)
	}
	rec.UtilizationPct = util

	return rec, nil
}
