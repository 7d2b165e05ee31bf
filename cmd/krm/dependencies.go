package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/analysis"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/anomaly"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/export"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/findeks"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/matching"
	"github.com/FACorreiaa/krm-analyzer/internal/platform/metrics"
	"github.com/FACorreiaa/krm-analyzer/internal/platform/ocr"
	"github.com/FACorreiaa/krm-analyzer/pkg/config"
	"github.com/FACorreiaa/krm-analyzer/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Rules  config.Rules
	Logger *slog.Logger

	// Platform
	Metrics *metrics.Recorder
	OCR     ocr.Engine
	Store   *storage.LocalStorage

	// Services
	Analyzer  *analysis.Service
	Artifacts *export.Artifacts
	Console   *export.Console
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initRules(); err != nil {
		return nil, fmt.Errorf("failed to init rules: %w", err)
	}

	if err := deps.initPlatform(); err != nil {
		return nil, fmt.Errorf("failed to init platform: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initExporters(); err != nil {
		return nil, fmt.Errorf("failed to init exporters: %w", err)
	}

	logger.Debug("all dependencies initialized successfully")

	return deps, nil
}

// initRules loads the rules file over the built-in defaults
func (d *Dependencies) initRules() error {
	rules, err := config.LoadRules(d.Config.Paths.RulesFile)
	if err != nil {
		return err
	}
	d.Rules = rules

	if d.Config.Paths.RulesFile != "" {
		d.Logger.Info("rules loaded",
			slog.String("file", d.Config.Paths.RulesFile),
			slog.Int("aliases", len(rules.Aliases)))
	}
	return nil
}

// initPlatform sets up metrics, the OCR engine and the output store
func (d *Dependencies) initPlatform() error {
	d.Metrics = metrics.New()

	if d.Config.OCR.Enabled {
		d.OCR = ocr.NewTesseract(d.Logger, d.Config.OCR.Lang, d.Config.OCR.DPI)
	}

	store, err := storage.NewLocalStorage(d.Config.Paths.OutputDir)
	if err != nil {
		return err
	}
	d.Store = store
	return nil
}

// initServices wires the analysis pipeline
func (d *Dependencies) initServices() error {
	r := d.Rules

	extractor := krm.Extractor{
		EntityPrefix:    r.EntityPrefix,
		StalenessWindow: r.StalenessWindow(),
	}
	engine := anomaly.NewEngine(anomaly.Thresholds{
		HighUtilization:         decimal.NewFromFloat(r.Thresholds.HighUtilization),
		CriticalUtilization:     decimal.NewFromFloat(r.Thresholds.CriticalUtilization),
		CriticalDelinquencyDays: r.Thresholds.DelinquencyDays,
	})

	fx := findeks.NewExtractor(findeks.NewAliasResolver(findeksAliases(r.Aliases), r.Keywords))
	fx.Strategy = findeks.TotalAnchorStrategy{Window: r.OCR.Window}
	fx.FirstPage = r.OCR.FirstPage

	matcher := matching.NewMatcher(r.Match.Threshold)
	matcher.Exclusive = r.Match.Exclusive

	d.Analyzer = analysis.NewService(extractor, engine, d.Logger).
		WithSecondary(fx, d.OCR, matcher).
		WithMetrics(d.Metrics).
		WithLimits(analysis.Limits{
			MaxFileBytes: d.Config.Limits.MaxFileBytes(),
			MaxPages:     d.Config.Limits.MaxPages,
		})
	return nil
}

// initExporters sets up the console report and the artifact writer
func (d *Dependencies) initExporters() error {
	formats, err := export.ParseFormats(d.Config.Paths.Formats)
	if err != nil {
		return err
	}
	d.Artifacts = export.NewArtifacts(d.Store, formats, d.Logger)
	d.Console = export.NewConsole(os.Stdout)
	return nil
}

func findeksAliases(in []config.Alias) []findeks.Alias {
	out := make([]findeks.Alias, len(in))
	for i, a := range in {
		out[i] = findeks.Alias{Keyword: a.Keyword, Name: a.Name}
	}
	return out
}
