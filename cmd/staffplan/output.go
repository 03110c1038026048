package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/travisfleish/staffing-plan-poc/internal/pipeline"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
	"github.com/travisfleish/staffing-plan-poc/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func renderPlan(res pipeline.PlanResult) {
	fmt.Printf("%s %s\n", colorize(colorBold, "Plan"), res.PlanID)
	fmt.Printf("  Contract:  %s\n", res.Plan.ContractID)
	fmt.Printf("  Strategy:  %s\n", res.Calibration.Strategy)
	fmt.Printf("  Baseline:  %.0f hours (AI %.0f / historical %.0f)\n",
		res.Calibration.BlendedBaseline, res.Calibration.AIEstimate, res.Calibration.HistoricalBaseline)
	fmt.Printf("  Duration:  %d weeks\n", res.Plan.DurationWeeks)
	fmt.Printf("  Matches:   %d similar contracts\n\n", len(res.Matches))

	fmt.Printf("  %-18s %10s %6s %8s %7s %9s %12s\n",
		"ROLE", "HOURS", "FTE", "PEOPLE", "WEEKS", "LEVEL", "COST")
	for _, e := range res.Plan.Entries {
		fmt.Printf("  %-18s %10.1f %6.2f %8d %3d-%-3d %9s %12.0f\n",
			e.Role, e.PlannedHours, e.FTE, e.NumPeople, e.StartWeek, e.EndWeek, e.Seniority, e.EstimatedCost)
	}

	for _, adv := range res.Plan.Advisories {
		printWarning("%s", adv)
	}
}

func renderVariance(rows []storage.VarianceRow) {
	fmt.Printf("  %-18s %10s %10s %10s %8s\n", "ROLE", "PLANNED", "ACTUAL", "VARIANCE", "PCT")
	for _, v := range rows {
		line := fmt.Sprintf("  %-18s %10.1f %10.1f %+10.1f %+7.1f%%",
			v.Role, v.PlannedHours, v.ActualHours, v.VarianceHours, v.VariancePct)
		if v.VarianceHours < 0 {
			line = colorize(colorRed, line)
		}
		fmt.Println(line)
	}
}

// planCSVHeader is the export column order of the tabular plan interface.
var planCSVHeader = []string{
	"contract_id", "role", "planned_hours", "fte",
	"start_week", "end_week", "seniority_level", "num_people",
}

func writePlanCSVFile(path string, plan planning.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(planCSVHeader); err != nil {
		return err
	}
	for _, e := range plan.Entries {
		rec := []string{
			e.ContractID,
			e.Role,
			strconv.FormatFloat(e.PlannedHours, 'f', 1, 64),
			strconv.FormatFloat(e.FTE, 'f', 2, 64),
			strconv.Itoa(e.StartWeek),
			strconv.Itoa(e.EndWeek),
			e.Seniority,
			strconv.Itoa(e.NumPeople),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
