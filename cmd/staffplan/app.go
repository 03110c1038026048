package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/travisfleish/staffing-plan-poc/internal/calibration"
	"github.com/travisfleish/staffing-plan-poc/internal/config"
	"github.com/travisfleish/staffing-plan-poc/internal/engine"
	"github.com/travisfleish/staffing-plan-poc/internal/index"
	"github.com/travisfleish/staffing-plan-poc/internal/ingest"
	"github.com/travisfleish/staffing-plan-poc/internal/pipeline"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
	"github.com/travisfleish/staffing-plan-poc/internal/sow"
	"github.com/travisfleish/staffing-plan-poc/internal/storage"
)

// app bundles the wired components every command needs. Close must be called
// when the command is done.
type app struct {
	cfg      config.Config
	store    *storage.Store
	pipeline *pipeline.Pipeline
	loader   *ingest.Loader
}

// buildApp loads configuration, sets up logging, opens storage, and wires
// the plan-generation pipeline.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	eng := engine.NewOllama(cfg.Engine.BaseURL)
	if !eng.IsRunning(ctx) {
		printWarning("inference engine not reachable at %s; using heuristic extraction and lexical search", cfg.Engine.BaseURL)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	extractor := sow.NewExtractor(
		eng,
		cfg.Engine.ExtractModel,
		time.Duration(cfg.Engine.ExtractTimeoutSec)*time.Second,
		cfg.Weights.AlphaComplexity,
		cfg.Weights.BetaWorkstreams,
	)
	searcher := index.NewSearcher(
		index.NewEmbedder(eng, cfg.Engine.EmbedModel),
		index.NewSQLiteIndex(store.DB()),
	)
	planner := planning.NewPlanner(cfg.Roles, cfg.Weights)
	p := pipeline.New(
		extractor,
		searcher,
		calibration.NewEngine(nil),
		planner,
		store,
		cfg.ContractMap,
		cfg.Weights,
		5,
	)

	return &app{
		cfg:      cfg,
		store:    store,
		pipeline: p,
		loader:   ingest.NewLoader(nil),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}
