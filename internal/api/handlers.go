package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/travisfleish/staffing-plan-poc/internal/history"
	"github.com/travisfleish/staffing-plan-poc/internal/ingest"
	"github.com/travisfleish/staffing-plan-poc/internal/pipeline"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
	"github.com/travisfleish/staffing-plan-poc/internal/storage"
)

const maxRequestBodySize = 10 << 20 // 10MB

// Deps holds the dependencies of the REST API.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Store    *storage.Store
	Loader   *ingest.Loader
	Token    string
}

// NewHandler returns the REST API. All routes except /health require the
// bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/plans", handleGeneratePlan(deps))
		r.Get("/plans/{id}", handleGetPlan(deps))
		r.Get("/plans/{id}/variance", handlePlanVariance(deps))
		r.Post("/history", handleImportHours(deps))
		r.Post("/contracts", handleIndexContract(deps))
		r.Get("/contracts/similar", handleSimilarContracts(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// PlanRequest is the POST /plans body. Exactly one of sow_text or sow_url
// must be set.
type PlanRequest struct {
	ContractID         string  `json:"contract_id"`
	SOWText            string  `json:"sow_text"`
	SOWURL             string  `json:"sow_url"`
	DurationMultiplier float64 `json:"duration_multiplier"`
	ScopeMultiplier    float64 `json:"scope_multiplier"`
	MaxTeamSize        int     `json:"max_team_size"`
}

func handleGeneratePlan(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req PlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ContractID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "contract_id is required")
			return
		}
		if (req.SOWText == "") == (req.SOWURL == "") {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "exactly one of sow_text or sow_url is required")
			return
		}

		sowText := req.SOWText
		if req.SOWURL != "" {
			doc, err := deps.Loader.Load(r.Context(), req.SOWURL)
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "loading sow: %v", err)
				return
			}
			sowText = doc.Text
		}

		res, err := deps.Pipeline.GeneratePlan(r.Context(), pipeline.PlanRequest{
			ContractID: req.ContractID,
			SOWText:    sowText,
			Params: planning.Params{
				DurationMultiplier: req.DurationMultiplier,
				ScopeMultiplier:    req.ScopeMultiplier,
				MaxTeamSize:        req.MaxTeamSize,
			},
		})
		if err != nil {
			planError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

func handleGetPlan(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := deps.Store.GetPlan(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrPlanNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "plan not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading plan: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(planJSON(plan))
	}
}

func handlePlanVariance(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := deps.Store.PlanVariance(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrPlanNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "plan not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "computing variance: %v", err)
			return
		}

		out := make([]varianceJSON, len(rows))
		for i, v := range rows {
			out[i] = varianceJSON{
				Role:          v.Role,
				PlannedHours:  v.PlannedHours,
				ActualHours:   v.ActualHours,
				VarianceHours: v.VarianceHours,
				VariancePct:   v.VariancePct,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

// handleImportHours accepts the historical hours table as CSV (text/csv
// body). Any invalid row rejects the whole batch.
func handleImportHours(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		records, err := history.ParseCSV(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "parsing hours csv: %v", err)
			return
		}

		n, err := deps.Pipeline.ImportHours(records)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "importing hours: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"imported": n})
	}
}

// IndexRequest is the POST /contracts body: a historical SOW to add to the
// similarity index.
type IndexRequest struct {
	ContractID string `json:"contract_id"`
	Title      string `json:"title"`
	SOWText    string `json:"sow_text"`
}

func handleIndexContract(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req IndexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ContractID == "" || strings.TrimSpace(req.SOWText) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "contract_id and sow_text are required")
			return
		}

		if err := deps.Pipeline.IndexContract(r.Context(), req.ContractID, req.Title, req.SOWText); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "indexing contract: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"contract_id": req.ContractID, "status": "indexed"})
	}
}

func handleSimilarContracts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query parameter q is required")
			return
		}
		topK := parseIntParam(r, "top_k", 5, 50)

		matches, err := deps.Pipeline.Similar(r.Context(), query, topK)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "searching contracts: %v", err)
			return
		}

		out := make([]matchJSON, len(matches))
		for i, m := range matches {
			out[i] = matchJSON{
				ContractID: m.ContractID,
				Similarity: m.Similarity,
				TotalHours: m.TotalHours,
				RoleShares: m.RoleShares,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

type matchJSON struct {
	ContractID string             `json:"contract_id"`
	Similarity float64            `json:"similarity"`
	TotalHours float64            `json:"total_hours"`
	RoleShares map[string]float64 `json:"role_shares"`
}

type varianceJSON struct {
	Role          string  `json:"role"`
	PlannedHours  float64 `json:"planned_hours"`
	ActualHours   float64 `json:"actual_hours"`
	VarianceHours float64 `json:"variance_hours"`
	VariancePct   float64 `json:"variance_pct"`
}

type planEntryJSON struct {
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

type planRecordJSON struct {
	ID              string          `json:"id"`
	ContractID      string          `json:"contract_id"`
	Strategy        string          `json:"strategy"`
	BlendedBaseline float64         `json:"blended_baseline"`
	CreatedAt       string          `json:"created_at"`
	Entries         []planEntryJSON `json:"entries"`
}

func planJSON(p storage.PlanRecord) planRecordJSON {
	entries := make([]planEntryJSON, len(p.Entries))
	for i, e := range p.Entries {
		entries[i] = planEntryJSON{
			Role:          e.Role,
			PlannedHours:  e.PlannedHours,
			FTE:           e.FTE,
			StartWeek:     e.StartWeek,
			EndWeek:       e.EndWeek,
			Seniority:     e.Seniority,
			NumPeople:     e.NumPeople,
			HourlyRate:    e.HourlyRate,
			EstimatedCost: e.EstimatedCost,
		}
	}
	return planRecordJSON{
		ID:              p.ID,
		ContractID:      p.ContractID,
		Strategy:        p.Strategy,
		BlendedBaseline: p.BlendedBaseline,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		Entries:         entries,
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
