package sow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/travisfleish/staffing-plan-poc/internal/engine"
)

const maxPromptChars = 12000

// Chatter is the slice of engine.Engine the extractor needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Extractor turns raw SOW text into a FeatureSet. The primary path asks the
// inference engine for a structured answer within a bounded timeout; on
// timeout, malformed output, or engine error it falls back to deterministic
// keyword heuristics. Extract never fails.
type Extractor struct {
	client  Chatter
	model   string
	timeout time.Duration

	// fallback tuning (weights.alpha_complexity / weights.beta_workstreams)
	alpha float64
	beta  float64
}

// NewExtractor creates an Extractor. timeout bounds the engine call; alpha
// and beta tune the fallback complexity score.
func NewExtractor(client Chatter, model string, timeout time.Duration, alpha, beta float64) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{client: client, model: model, timeout: timeout, alpha: alpha, beta: beta}
}

// Extract analyzes the SOW text and returns a complete, valid FeatureSet.
func (e *Extractor) Extract(ctx context.Context, text string) FeatureSet {
	if strings.TrimSpace(text) == "" {
		return e.fallback(text)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.client.Chat(ctx, e.model, buildPrompt(text), featureSchema())
	if err != nil {
		slog.Warn("feature extraction chat failed, using heuristic fallback", "error", err)
		return e.fallback(text)
	}

	fs, err := parseFeatures(raw)
	if err != nil {
		slog.Warn("feature extraction returned malformed answer, using heuristic fallback", "error", err)
		return e.fallback(text)
	}
	return fs
}

func (e *Extractor) fallback(text string) FeatureSet {
	return FallbackFeatures(text, e.alpha, e.beta)
}

func buildPrompt(text string) []engine.Message {
	system := "You are a staffing planner. Read the SOW text and return JSON with: " +
		"complexity_level (low|medium|high), duration_months (number), workstream_count (number), " +
		"estimated_total_hours (number - estimate total staffing hours needed), key_deliverables (list of strings). " +
		"Provide realistic estimates based on the scope and duration described. " +
		"Ensure estimated_total_hours and duration_months are numeric values."

	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return []engine.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}
}

func featureSchema() *engine.Schema {
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"complexity_level":      {Type: "string", Description: "One of: low, medium, high"},
			"duration_months":       {Type: "number", Description: "Engagement duration in months"},
			"workstream_count":      {Type: "number", Description: "Number of distinct workstreams"},
			"estimated_total_hours": {Type: "number", Description: "Estimated total staffing hours"},
			"key_deliverables":      {Type: "array", Description: "Main deliverables named in the SOW"},
		},
		Required: []string{"complexity_level", "duration_months", "workstream_count", "estimated_total_hours", "key_deliverables"},
	}
}

// rawFeatures mirrors the engine's JSON answer before validation. Numeric
// fields are decoded leniently: small models occasionally emit strings.
type rawFeatures struct {
	ComplexityLevel     string          `json:"complexity_level"`
	DurationMonths      json.Number     `json:"duration_months"`
	WorkstreamCount     json.Number     `json:"workstream_count"`
	EstimatedTotalHours json.Number     `json:"estimated_total_hours"`
	KeyDeliverables     json.RawMessage `json:"key_deliverables"`
}

func parseFeatures(raw string) (FeatureSet, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var rf rawFeatures
	if err := dec.Decode(&rf); err != nil {
		return FeatureSet{}, err
	}

	fs := FeatureSet{
		Complexity:      ParseComplexity(strings.ToLower(strings.TrimSpace(rf.ComplexityLevel))),
		KeyDeliverables: []string{},
	}
	if v, err := rf.DurationMonths.Float64(); err == nil && v > 0 {
		fs.DurationMonths = v
	} else {
		fs.DurationMonths = 4
	}
	if v, err := rf.WorkstreamCount.Int64(); err == nil && v >= 0 {
		fs.WorkstreamCount = int(v)
	}
	if v, err := rf.EstimatedTotalHours.Float64(); err == nil && v > 0 {
		fs.EstimatedTotalHours = v
	} else {
		fs.EstimatedTotalHours = fallbackHours[fs.Complexity]
	}
	if len(rf.KeyDeliverables) > 0 {
		var deliverables []string
		if err := json.Unmarshal(rf.KeyDeliverables, &deliverables); err == nil {
			fs.KeyDeliverables = deliverables
		}
	}

	return fs, fs.Validate()
}
