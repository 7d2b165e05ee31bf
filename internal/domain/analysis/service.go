package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/anomaly"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/findeks"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/matching"
	"github.com/FACorreiaa/krm-analyzer/internal/platform/document"
	"github.com/FACorreiaa/krm-analyzer/internal/platform/metrics"
	"github.com/FACorreiaa/krm-analyzer/internal/platform/ocr"
)

var tracer = otel.Tracer("github.com/FACorreiaa/krm-analyzer/internal/domain/analysis")

var (
	ErrFileTooLarge = errors.New("analysis: file too large")
	ErrTooManyPages = errors.New("analysis: too many pages")
)

// Limits bound what a single document may cost. Zero means unbounded.
type Limits struct {
	MaxFileBytes int64
	MaxPages     int
}

// Service analyzes report pairs.
type Service struct {
	extractor krm.Extractor
	engine    *anomaly.Engine
	docOpts   []document.Option
	limits    Limits

	secondary *findeks.Extractor // optional
	ocr       ocr.Engine
	matcher   *matching.Matcher

	metrics *metrics.Recorder // optional
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a service for primary reports only.
func NewService(extractor krm.Extractor, engine *anomaly.Engine, logger *slog.Logger) *Service {
	return &Service{
		extractor: extractor,
		engine:    engine,
		logger:    logger,
		now:       time.Now,
	}
}

// WithSecondary enables Findeks processing and matching.
func (s *Service) WithSecondary(extractor *findeks.Extractor, engine ocr.Engine, matcher *matching.Matcher) *Service {
	s.secondary = extractor
	s.ocr = engine
	s.matcher = matcher
	return s
}

// WithMetrics records batch counters on r.
func (s *Service) WithMetrics(r *metrics.Recorder) *Service {
	s.metrics = r
	return s
}

// WithLimits sets the per-document bounds.
func (s *Service) WithLimits(l Limits) *Service {
	s.limits = l
	return s
}

// WithDocumentOptions passes layout options to the PDF reader.
func (s *Service) WithDocumentOptions(opts ...document.Option) *Service {
	s.docOpts = opts
	return s
}

// Analyze runs the primary pipeline on an open document.
func (s *Service) Analyze(ctx context.Context, name string, doc document.Document) (res Result) {
	ctx, span := tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(attribute.String("file", name)))
	defer span.End()

	res = Result{RunID: uuid.New(), File: name, AnalyzedAt: s.now(), Secondary: findeks.StatusNone}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("analysis panicked: %v", r)
			span.SetStatus(codes.Error, err.Error())
			res = failed(res, err)
		}
	}()

	header := krm.ParseHeader(doc)
	res.Company, res.ReportDate = header.Company, header.ReportDate

	_, extractSpan := tracer.Start(ctx, "krm.Extract")
	ex := s.extractor.Extract(doc)
	extractSpan.SetAttributes(
		attribute.Int("limits", len(ex.Limits)),
		attribute.Int("risks", len(ex.Risks)),
		attribute.Int("outcomes", len(ex.Outcomes)))
	extractSpan.End()

	res.Limits, res.Risks = ex.Limits, ex.Risks
	res.Outcomes, res.Tables = ex.Outcomes, ex.Tables
	res.Active, res.Passive = krm.Partition(ex.Limits, ex.Risks)
	res.Findings = s.engine.Evaluate(ex.Limits, ex.Risks, res.Active)
	res.Matches = []matching.Result{}
	res.Stats = newStats(res.Active, res.Passive, res.Findings)
	res.Success = true

	skippedTables := 0
	for _, t := range ex.Tables {
		if t.Reason != "" {
			skippedTables++
		}
	}
	if len(ex.Outcomes) > 0 || skippedTables > 0 {
		s.logger.Debug("skipped report units",
			slog.String("file", name),
			slog.Int("rows", len(ex.Outcomes)),
			slog.Int("unparsed_fields", ex.Skipped(krm.FieldUnparsed)),
			slog.Int("tables", skippedTables))
	}
	span.SetAttributes(
		attribute.Int("active", res.Stats.Active),
		attribute.Int("critical", res.Stats.Critical))
	return res
}

// AnalyzeFile opens job.Primary, analyzes it and, when configured, reads and
// matches job.Secondary. Failures are reported in the result, never returned.
func (s *Service) AnalyzeFile(ctx context.Context, job Job) Result {
	start := time.Now()
	name := filepath.Base(job.Primary)

	res := s.analyzeFile(ctx, job)
	if res.Success && job.Secondary != "" {
		s.attachSecondary(ctx, &res, job.Secondary)
	}

	if res.Success {
		s.logger.Info("analyzed report",
			slog.String("file", name),
			slog.String("company", res.Company),
			slog.Int("active", res.Stats.Active),
			slog.Int("passive", res.Stats.Passive),
			slog.Int("critical", res.Stats.Critical),
			slog.Int("warning", res.Stats.Warning),
			slog.Int("matches", len(res.Matches)),
			slog.String("secondary", string(res.Secondary)))
	} else {
		s.logger.Error("failed to analyze report", slog.String("file", name), slog.String("error", res.Err))
	}
	s.record(res, time.Since(start))
	return res
}

func (s *Service) analyzeFile(ctx context.Context, job Job) Result {
	name := filepath.Base(job.Primary)
	base := Result{RunID: uuid.New(), File: name, AnalyzedAt: s.now(), Secondary: findeks.StatusNone}

	if err := ctx.Err(); err != nil {
		return failed(base, err)
	}

	info, err := os.Stat(job.Primary)
	if err != nil {
		return failed(base, fmt.Errorf("failed to stat report: %w", err))
	}
	if s.limits.MaxFileBytes > 0 && info.Size() > s.limits.MaxFileBytes {
		return failed(base, fmt.Errorf("%s is %d bytes: %w", name, info.Size(), ErrFileTooLarge))
	}

	doc, err := document.Open(job.Primary, s.docOpts...)
	if err != nil {
		return failed(base, fmt.Errorf("failed to open report: %w", err))
	}
	defer doc.Close()

	if s.limits.MaxPages > 0 && doc.PageCount() > s.limits.MaxPages {
		return failed(base, fmt.Errorf("%s has %d pages: %w", name, doc.PageCount(), ErrTooManyPages))
	}
	return s.Analyze(ctx, name, doc)
}

func (s *Service) attachSecondary(ctx context.Context, res *Result, path string) {
	res.SecondaryFile = filepath.Base(path)
	if s.secondary == nil {
		res.Secondary = findeks.StatusUnavailable
		return
	}

	ctx, span := tracer.Start(ctx, "findeks.ExtractDocument", trace.WithAttributes(attribute.String("file", res.SecondaryFile)))
	ex, status, err := s.secondary.ExtractDocument(ctx, s.ocr, path)
	span.End()

	res.Secondary = status
	if err != nil {
		s.logger.Warn("failed to read findeks report",
			slog.String("file", res.SecondaryFile),
			slog.Any("error", err))
		return
	}
	if status != findeks.StatusOK {
		return
	}

	res.SecondaryRecords, res.SecondaryBlocks = ex.Records, ex.Outcomes
	if s.matcher != nil {
		res.Matches = s.matcher.Match(res.Limits, res.Risks, ex.Records)
	}
	s.logger.Debug("read findeks report",
		slog.String("file", res.SecondaryFile),
		slog.Int("records", len(ex.Records)),
		slog.Int("skipped_blocks", len(ex.Outcomes)),
		slog.Int("matches", len(res.Matches)))
}

func failed(res Result, err error) Result {
	return Result{
		RunID:      res.RunID,
		File:       res.File,
		AnalyzedAt: res.AnalyzedAt,
		Secondary:  findeks.StatusNone,
		Err:        err.Error(),
	}
}

func (s *Service) record(res Result, took time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDocument(res.Success, took)
	s.metrics.AddFindings(string(anomaly.Critical), res.Stats.Critical)
	s.metrics.AddFindings(string(anomaly.Warning), res.Stats.Warning)
	for _, m := range res.Matches {
		s.metrics.AddMatch(string(m.Confidence))
	}
	s.metrics.SecondaryStatus(string(res.Secondary))
}
