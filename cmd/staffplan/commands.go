package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/travisfleish/staffing-plan-poc/internal/config"
	"github.com/travisfleish/staffing-plan-poc/internal/history"
	"github.com/travisfleish/staffing-plan-poc/internal/index"
	"github.com/travisfleish/staffing-plan-poc/internal/pipeline"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
)

// --- plan ---

var planCmd = &cobra.Command{
	Use:   "plan <sow-file-or-url>",
	Short: "Generate a staffing plan from a SOW document",
	Long: `Generate a staffing plan from a SOW document.

The SOW may be a local text, markdown, or PDF file, or an http(s) URL.

Examples:
  staffplan plan ./sow/acme-retainer.pdf --contract-id C-2026-04
  staffplan plan https://intranet/sows/acme.html --contract-id C-2026-04 --csv plan.csv
  staffplan plan ./sow.md --contract-id C-1 --max-team-size 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contractID, _ := cmd.Flags().GetString("contract-id")
		maxTeam, _ := cmd.Flags().GetInt("max-team-size")
		scope, _ := cmd.Flags().GetFloat64("scope-multiplier")
		durMult, _ := cmd.Flags().GetFloat64("duration-multiplier")
		csvPath, _ := cmd.Flags().GetString("csv")
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.loader.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if contractID == "" {
			contractID = doc.Title
		}

		res, err := a.pipeline.GeneratePlan(cmd.Context(), pipeline.PlanRequest{
			ContractID: contractID,
			SOWText:    doc.Text,
			Params: planning.Params{
				MaxTeamSize:        maxTeam,
				ScopeMultiplier:    scope,
				DurationMultiplier: durMult,
			},
		})
		if err != nil {
			return err
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		renderPlan(res)

		if csvPath != "" {
			if err := writePlanCSVFile(csvPath, res.Plan); err != nil {
				return err
			}
			printSuccess("Plan exported to %s", csvPath)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().String("contract-id", "", "identifier for the new engagement (default: document title)")
	planCmd.Flags().Int("max-team-size", 0, "maximum number of distinct roles (default 8)")
	planCmd.Flags().Float64("scope-multiplier", 0, "scales allocated hours (default 1.0)")
	planCmd.Flags().Float64("duration-multiplier", 0, "scales engagement duration (default 1.0)")
	planCmd.Flags().String("csv", "", "export the plan table to a CSV file")
	planCmd.Flags().Bool("json", false, "print the full result as JSON")
}

// --- variance ---

var varianceCmd = &cobra.Command{
	Use:   "variance <plan-id>",
	Short: "Compare a stored plan against actual recorded hours",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.store.PlanVariance(args[0])
		if err != nil {
			return err
		}
		renderVariance(rows)
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the historical hours table",
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import historical hours from CSV",
	Long: `Import historical hours from CSV.

The file must carry the columns contract_id, person_id, role, week_start
(YYYY-MM-DD), actual_hours, and utilization_pct, in any order. Any invalid
row rejects the whole file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		records, err := history.ParseCSV(f)
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.pipeline.ImportHours(records)
		if err != nil {
			return err
		}
		printSuccess("Imported %d hours records from %s", n, args[0])
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyImportCmd)
}

// --- contracts ---

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Manage the historical contract index",
}

var contractsIndexCmd = &cobra.Command{
	Use:   "index <sow-file-dir-or-url>...",
	Short: "Add historical SOWs to the similarity index",
	Long: `Add historical SOWs to the similarity index.

A single file or URL is indexed under --contract-id. Directories expand to
their .txt, .md, and .pdf files; with more than one document each is indexed
under its file name and the batch is embedded concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contractID, _ := cmd.Flags().GetString("contract-id")
		title, _ := cmd.Flags().GetString("title")

		sources, err := expandSOWSources(args)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("no SOW documents found in %s", strings.Join(args, ", "))
		}
		if len(sources) > 1 && contractID != "" {
			return fmt.Errorf("--contract-id applies to a single document, got %d", len(sources))
		}
		if len(sources) == 1 && contractID == "" {
			return fmt.Errorf("--contract-id is required")
		}

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if len(sources) == 1 {
			doc, err := a.loader.Load(cmd.Context(), sources[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = doc.Title
			}
			if err := a.pipeline.IndexContract(cmd.Context(), contractID, title, doc.Text); err != nil {
				return err
			}
			printSuccess("Indexed contract %s (%s)", contractID, title)
			return nil
		}

		docs := make([]index.Doc, 0, len(sources))
		for _, src := range sources {
			doc, err := a.loader.Load(cmd.Context(), src)
			if err != nil {
				return err
			}
			docs = append(docs, index.Doc{ContractID: doc.Title, Title: doc.Title, Text: doc.Text})
		}
		if err := a.pipeline.IndexContracts(cmd.Context(), docs); err != nil {
			return err
		}
		printSuccess("Indexed %d contracts", len(docs))
		return nil
	},
}

// sowExtensions are the document types picked up when a directory is indexed.
var sowExtensions = map[string]bool{".txt": true, ".md": true, ".pdf": true}

// expandSOWSources flattens the argument list into loadable sources: URLs
// and files pass through, directories expand to their SOW documents.
func expandSOWSources(args []string) ([]string, error) {
	var sources []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			sources = append(sources, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			sources = append(sources, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !sowExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			sources = append(sources, filepath.Join(arg, e.Name()))
		}
	}
	return sources, nil
}

var contractsSimilarCmd = &cobra.Command{
	Use:   "similar <query text>",
	Short: "Find historical contracts similar to the given text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.pipeline.Similar(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No similar contracts found.")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%s  similarity %.3f  %.0f hours\n",
				colorize(colorCyan, m.ContractID), m.Similarity, m.TotalHours)
		}
		return nil
	},
}

func init() {
	contractsIndexCmd.Flags().String("contract-id", "", "contract identifier to index under")
	contractsIndexCmd.Flags().String("title", "", "human-readable title (default: document title)")
	contractsSimilarCmd.Flags().Int("limit", 5, "maximum number of results")
	contractsCmd.AddCommand(contractsIndexCmd)
	contractsCmd.AddCommand(contractsSimilarCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Server.APIToken != "" {
			cfg.Server.APIToken = "********"
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
