package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. It is loaded once at startup,
// validated, and treated as read-only for the lifetime of the process.
// Components receive it (or a sub-section) by value; nothing mutates it.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Engine      EngineConfig      `yaml:"engine"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
	Roles       RolesConfig       `yaml:"roles"`
	Weights     WeightsConfig     `yaml:"weights"`
	ContractMap map[string]string `yaml:"contract_map"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	MCPPort  int    `yaml:"mcp_port"`
	APIToken string `yaml:"api_token"`
}

// EngineConfig points at the inference backend used for feature extraction
// and embeddings.
type EngineConfig struct {
	BaseURL           string `yaml:"base_url"`
	ExtractModel      string `yaml:"extract_model"`
	EmbedModel        string `yaml:"embed_model"`
	ExtractTimeoutSec int    `yaml:"extract_timeout_seconds"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// RolesConfig holds per-role billing rates and utilization targets.
// Unconfigured roles fall back to DefaultRate / DefaultUtilization.
type RolesConfig struct {
	DefaultRate        float64            `yaml:"default_rate"`
	DefaultUtilization float64            `yaml:"default_utilization"`
	Rates              map[string]float64 `yaml:"rates"`
	UtilizationTargets map[string]float64 `yaml:"utilization_targets"`
}

// Rate returns the hourly rate for role and whether it was configured.
func (r RolesConfig) Rate(role string) (float64, bool) {
	if v, ok := r.Rates[strings.ToLower(role)]; ok {
		return v, true
	}
	return r.DefaultRate, false
}

// Utilization returns the utilization target for role and whether it was
// configured.
func (r RolesConfig) Utilization(role string) (float64, bool) {
	if v, ok := r.UtilizationTargets[strings.ToLower(role)]; ok {
		return v, true
	}
	return r.DefaultUtilization, false
}

// WeightsConfig tunes the estimation pipeline: fallback feature heuristics,
// the role mix applied when no historical mix is available, team minimums,
// and the calibration block.
type WeightsConfig struct {
	AlphaComplexity       float64                   `yaml:"alpha_complexity"`
	BetaWorkstreams       float64                   `yaml:"beta_workstreams"`
	RoleMix               map[string]float64        `yaml:"role_mix"`
	DefaultProjectType    string                    `yaml:"default_project_type"`
	MinTeamComposition    map[string]map[string]int `yaml:"min_team_composition"`
	SeniorityByComplexity map[string]string         `yaml:"seniority_by_complexity"`
	Calibration           CalibrationConfig         `yaml:"calibration"`
}

// MinTeam returns the mandatory role minimums for a project type. Unknown
// project types have no minimums.
func (w WeightsConfig) MinTeam(projectType string) map[string]int {
	return w.MinTeamComposition[strings.ToLower(projectType)]
}

// Seniority maps a complexity level to a seniority label, defaulting to "mid".
func (w WeightsConfig) Seniority(complexity string) string {
	if s, ok := w.SeniorityByComplexity[strings.ToLower(complexity)]; ok {
		return s
	}
	return "mid"
}

// CalibrationConfig controls the blend of AI and historical estimates.
type CalibrationConfig struct {
	AIConfidence         float64 `yaml:"ai_confidence"`
	HistoricalConfidence float64 `yaml:"historical_confidence"`
	MinSimilarContracts  int     `yaml:"min_similar_contracts"`
	SimilarityThreshold  float64 `yaml:"similarity_threshold"`
	FallbackStrategy     string  `yaml:"fallback_strategy"`
}

// Fallback strategy names accepted in CalibrationConfig.FallbackStrategy.
const (
	FallbackConservative = "conservative"
	FallbackAIOnly       = "ai-only"
	FallbackMax          = "max"
)

// ConfigurationError reports an invalid or missing configuration value.
// It is fatal at startup and never deferred into plan generation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		Engine: EngineConfig{
			BaseURL:           "http://localhost:11434",
			ExtractModel:      "phi3.5",
			EmbedModel:        "nomic-embed-text",
			ExtractTimeoutSec: 15,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{Level: "info"},
		Roles: RolesConfig{
			DefaultRate:        200,
			DefaultUtilization: 0.85,
		},
		Weights: WeightsConfig{
			AlphaComplexity:    0.5,
			BetaWorkstreams:    0.2,
			DefaultProjectType: "project",
			RoleMix: map[string]float64{
				"account_manager": 0.15,
				"designer":        0.35,
				"copywriter":      0.25,
				"producer":        0.25,
			},
			SeniorityByComplexity: map[string]string{
				"low":    "junior",
				"medium": "mid",
				"high":   "senior",
			},
			Calibration: CalibrationConfig{
				AIConfidence:         0.3,
				HistoricalConfidence: 0.7,
				MinSimilarContracts:  2,
				SimilarityThreshold:  0.3,
				FallbackStrategy:     FallbackConservative,
			},
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".staffplan"
	}
	return filepath.Join(home, ".staffplan")
}

// Load reads configuration from path (YAML), applies STAFFPLAN_* environment
// overrides, and validates the result. An empty path means the default
// ./staffplan.yaml, which is allowed to be absent; an explicit path must
// exist.
func Load(path string) (Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = "staffplan.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults plus env overrides only.
	default:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envStr(&cfg.Engine.BaseURL, "STAFFPLAN_OLLAMA_URL")
	envStr(&cfg.Engine.ExtractModel, "STAFFPLAN_EXTRACT_MODEL")
	envStr(&cfg.Engine.EmbedModel, "STAFFPLAN_EMBED_MODEL")
	envStr(&cfg.Storage.DataDir, "STAFFPLAN_DATA_DIR")
	envStr(&cfg.Log.Level, "STAFFPLAN_LOG_LEVEL")
	envStr(&cfg.Server.APIToken, "STAFFPLAN_API_TOKEN")
	envInt(&cfg.Server.Port, "STAFFPLAN_PORT")
	envInt(&cfg.Server.MCPPort, "STAFFPLAN_MCP_PORT")
	envInt(&cfg.Engine.ExtractTimeoutSec, "STAFFPLAN_EXTRACT_TIMEOUT_SECONDS")
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

// Validate checks every section and returns the first violation as a
// ConfigurationError.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigurationError{Field: "server.port", Reason: fmt.Sprintf("must be in 1..65535, got %d", c.Server.Port)}
	}
	if c.Engine.BaseURL == "" {
		return &ConfigurationError{Field: "engine.base_url", Reason: "must not be empty"}
	}
	if c.Engine.ExtractTimeoutSec <= 0 {
		return &ConfigurationError{Field: "engine.extract_timeout_seconds", Reason: "must be positive"}
	}
	if c.Roles.DefaultRate <= 0 {
		return &ConfigurationError{Field: "roles.default_rate", Reason: "must be positive"}
	}
	if c.Roles.DefaultUtilization <= 0 || c.Roles.DefaultUtilization > 1 {
		return &ConfigurationError{Field: "roles.default_utilization", Reason: "must be in (0, 1]"}
	}
	for role, rate := range c.Roles.Rates {
		if rate <= 0 {
			return &ConfigurationError{Field: "roles.rates." + role, Reason: "must be positive"}
		}
	}
	for role, util := range c.Roles.UtilizationTargets {
		if util <= 0 || util > 1 {
			return &ConfigurationError{Field: "roles.utilization_targets." + role, Reason: "must be in (0, 1]"}
		}
	}
	if len(c.Weights.RoleMix) == 0 {
		return &ConfigurationError{Field: "weights.role_mix", Reason: "must not be empty"}
	}
	var mixSum float64
	for role, frac := range c.Weights.RoleMix {
		if frac <= 0 {
			return &ConfigurationError{Field: "weights.role_mix." + role, Reason: "must be positive"}
		}
		mixSum += frac
	}
	if math.Abs(mixSum-1.0) > 0.05 {
		return &ConfigurationError{Field: "weights.role_mix", Reason: fmt.Sprintf("fractions sum to %.3f, expected ~1.0", mixSum)}
	}
	return c.Weights.Calibration.validate()
}

func (cc CalibrationConfig) validate() error {
	if cc.AIConfidence < 0 || cc.AIConfidence > 1 {
		return &ConfigurationError{Field: "weights.calibration.ai_confidence", Reason: "must be in [0, 1]"}
	}
	if cc.HistoricalConfidence < 0 || cc.HistoricalConfidence > 1 {
		return &ConfigurationError{Field: "weights.calibration.historical_confidence", Reason: "must be in [0, 1]"}
	}
	if cc.AIConfidence+cc.HistoricalConfidence == 0 {
		return &ConfigurationError{Field: "weights.calibration", Reason: "ai_confidence and historical_confidence must not both be zero"}
	}
	if cc.MinSimilarContracts < 0 {
		return &ConfigurationError{Field: "weights.calibration.min_similar_contracts", Reason: "must be non-negative"}
	}
	if cc.SimilarityThreshold < 0 || cc.SimilarityThreshold > 1 {
		return &ConfigurationError{Field: "weights.calibration.similarity_threshold", Reason: "must be in [0, 1]"}
	}
	switch cc.FallbackStrategy {
	case FallbackConservative, FallbackAIOnly, FallbackMax:
	default:
		return &ConfigurationError{Field: "weights.calibration.fallback_strategy", Reason: fmt.Sprintf("unknown strategy %q", cc.FallbackStrategy)}
	}
	return nil
}
