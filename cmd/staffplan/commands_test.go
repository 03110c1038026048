package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/travisfleish/staffing-plan-poc/internal/planning"
)

func TestRootCommandWiring(t *testing.T) {
	want := []string{"serve", "plan", "variance", "history", "contracts", "config"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorGreen, "ok"); strings.Contains(got, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", got)
	}

	noColor = false
	if got := colorize(colorGreen, "ok"); !strings.Contains(got, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}

func TestExpandSOWSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"acme.txt", "globex.md", "initech.pdf", "notes.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(dir, "acme.txt")

	sources, err := expandSOWSources([]string{dir, single, "https://intranet/sow.html"})
	if err != nil {
		t.Fatalf("expandSOWSources: %v", err)
	}
	// Directory contributes its three SOW documents; the json file and the
	// subdirectory are skipped. The explicit file and URL pass through.
	if len(sources) != 5 {
		t.Fatalf("got %d sources %v, want 5", len(sources), sources)
	}
	if sources[3] != single || sources[4] != "https://intranet/sow.html" {
		t.Errorf("explicit args not passed through: %v", sources)
	}

	if _, err := expandSOWSources([]string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestWritePlanCSVFile(t *testing.T) {
	plan := planning.Plan{
		ContractID:    "C-1",
		DurationWeeks: 17,
		Entries: []planning.Entry{
			{ContractID: "C-1", Role: "designer", PlannedHours: 600, FTE: 1.1, StartWeek: 1, EndWeek: 17, Seniority: "mid", NumPeople: 2},
			{ContractID: "C-1", Role: "copywriter", PlannedHours: 400, FTE: 0.74, StartWeek: 1, EndWeek: 17, Seniority: "mid", NumPeople: 1},
		},
	}

	path := filepath.Join(t.TempDir(), "plan.csv")
	if err := writePlanCSVFile(path, plan); err != nil {
		t.Fatalf("writePlanCSVFile: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 entries", len(rows))
	}

	wantHeader := "contract_id,role,planned_hours,fte,start_week,end_week,seniority_level,num_people"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Errorf("header = %s, want %s", got, wantHeader)
	}
	if rows[1][1] != "designer" || rows[1][2] != "600.0" || rows[1][3] != "1.10" {
		t.Errorf("designer row = %v", rows[1])
	}
	if rows[2][7] != "1" {
		t.Errorf("copywriter num_people = %s, want 1", rows[2][7])
	}
}
