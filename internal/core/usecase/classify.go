package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/forms"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

const (
	defaultIDTimeout          = 20 * time.Second
	defaultHandwritingTimeout = 30 * time.Second
)

// ClassifyObserver receives per-tier and per-document outcomes.
type ClassifyObserver interface {
	ObserveTier(tier domain.Tier, outcome domain.TierOutcome, duration time.Duration)
	ObserveResult(docType domain.DocumentType, strategy domain.Strategy)
}

type ClassifyOptions struct {
	IDTimeout          time.Duration
	HandwritingTimeout time.Duration
	IDMinConfidence    float64
}

// stage is a state of the classification machine.
type stage int

const (
	stageRuleMatch stage = iota
	stageIDDetection
	stageHandwriting
	stageFallback
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageRuleMatch:
		return "rule_match"
	case stageIDDetection:
		return "id_detection"
	case stageHandwriting:
		return "handwriting_detection"
	case stageFallback:
		return "fallback"
	default:
		return "done"
	}
}

// classifyRun carries the state of one document through the machine.
type classifyRun struct {
	doc      domain.Document
	runs     []domain.TextRun
	result   domain.ClassificationResult
	attempts []domain.TierAttempt
}

// ClassifyUseCase runs the tiered classifier: form rules, ID detection,
// handwriting detection, then OTHER. Safe for concurrent use.
type ClassifyUseCase struct {
	layout      ports.LayoutExtractor
	matcher     *forms.Matcher
	idDetector  ports.IDDetector
	renderer    ports.PageRenderer
	handwriting ports.HandwritingDetector
	observer    ClassifyObserver
	opts        ClassifyOptions
}

// NewClassifyUseCase wires the pipeline. idDetector, renderer and handwriting may
// be nil; the corresponding tier is then reported as unavailable.
func NewClassifyUseCase(
	layout ports.LayoutExtractor,
	matcher *forms.Matcher,
	idDetector ports.IDDetector,
	renderer ports.PageRenderer,
	handwriting ports.HandwritingDetector,
	opts ClassifyOptions,
) *ClassifyUseCase {
	if matcher == nil {
		matcher = forms.NewMatcher(forms.YearRange{})
	}
	if opts.IDTimeout <= 0 {
		opts.IDTimeout = defaultIDTimeout
	}
	if opts.HandwritingTimeout <= 0 {
		opts.HandwritingTimeout = defaultHandwritingTimeout
	}
	return &ClassifyUseCase{
		layout:      layout,
		matcher:     matcher,
		idDetector:  idDetector,
		renderer:    renderer,
		handwriting: handwriting,
		opts:        opts,
	}
}

// WithObserver attaches an outcome observer and returns the use case.
func (uc *ClassifyUseCase) WithObserver(observer ClassifyObserver) *ClassifyUseCase {
	uc.observer = observer
	return uc
}

// Classify returns exactly one of a result or a *domain.ClassificationError.
// Service failures never surface; they degrade to the next tier. The one
// exception is cancellation of ctx itself, returned as the context error.
func (uc *ClassifyUseCase) Classify(ctx context.Context, doc domain.Document) (*domain.ClassificationResult, error) {
	run, err := uc.prepare(ctx, doc)
	if err != nil {
		return nil, err
	}

	for st := stageRuleMatch; st != stageDone; {
		st = uc.step(ctx, run, st)
		// a canceled caller is not a degraded tier
		if err := ctx.Err(); err != nil && st != stageDone {
			return nil, fmt.Errorf("classify %s: %w", doc.Filename, err)
		}
	}

	run.result.Attempts = run.attempts
	if uc.observer != nil {
		uc.observer.ObserveResult(run.result.DocumentType, run.result.SourceStrategy)
	}
	return &run.result, nil
}

func (uc *ClassifyUseCase) prepare(ctx context.Context, doc domain.Document) (*classifyRun, error) {
	if len(doc.Content) == 0 {
		return nil, &domain.ClassificationError{
			Filename: doc.Filename,
			Detail:   "document is empty",
			Err:      domain.WrapError(domain.ErrInvalidInput, "classify", errors.New("empty content")),
		}
	}

	runs, err := uc.layout.Extract(ctx, doc.Content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("extract layout: %w", ctxErr)
		}
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			err = domain.WrapError(domain.ErrUnparseablePDF, "extract layout", err)
		}
		return nil, &domain.ClassificationError{
			Filename: doc.Filename,
			Detail:   fmt.Sprintf("could not read PDF: %v", err),
			Err:      err,
		}
	}

	return &classifyRun{
		doc:  doc,
		runs: runs,
		result: domain.ClassificationResult{
			Filename:      doc.Filename,
			FileSizeBytes: doc.Size(),
			FileSizeMB:    doc.SizeMB(),
		},
	}, nil
}

func (uc *ClassifyUseCase) step(ctx context.Context, run *classifyRun, st stage) stage {
	switch st {
	case stageRuleMatch:
		return uc.matchForms(run)
	case stageIDDetection:
		return uc.detectID(ctx, run)
	case stageHandwriting:
		return uc.detectHandwriting(ctx, run)
	default:
		run.result.DocumentType = domain.TypeOther
		run.result.SourceStrategy = domain.StrategyFallback
		run.result.Year = nil
		return stageDone
	}
}

func (uc *ClassifyUseCase) matchForms(run *classifyRun) stage {
	start := time.Now()
	match, ok := uc.matcher.Match(run.runs)
	if !ok {
		uc.record(run, domain.TierRules, domain.OutcomeDeclined, start, nil)
		return stageIDDetection
	}
	uc.record(run, domain.TierRules, domain.OutcomeMatched, start, nil)
	run.result.DocumentType = match.Type
	run.result.Year = match.Year
	run.result.SourceStrategy = domain.StrategyRules
	return stageDone
}

func (uc *ClassifyUseCase) detectID(ctx context.Context, run *classifyRun) stage {
	start := time.Now()
	if uc.idDetector == nil {
		uc.record(run, domain.TierIDDetection, domain.OutcomeUnavailable, start, nil)
		return stageHandwriting
	}

	tierCtx, cancel := context.WithTimeout(ctx, uc.opts.IDTimeout)
	defer cancel()

	signal, err := uc.idDetector.DetectID(tierCtx, run.doc)
	if err != nil {
		uc.record(run, domain.TierIDDetection, domain.OutcomeError, start, err)
		return stageHandwriting
	}

	switch {
	case signal.Verdict == domain.VerdictPositive && signal.Confidence >= uc.opts.IDMinConfidence:
		uc.record(run, domain.TierIDDetection, domain.OutcomeMatched, start, nil)
		run.result.DocumentType = domain.TypeIDCard
		run.result.SourceStrategy = domain.StrategyIDDetection
		return stageDone
	case signal.Verdict == domain.VerdictNegative:
		uc.record(run, domain.TierIDDetection, domain.OutcomeDeclined, start, nil)
	default:
		uc.record(run, domain.TierIDDetection, domain.OutcomeInconclusive, start, nil)
	}
	return stageHandwriting
}

func (uc *ClassifyUseCase) detectHandwriting(ctx context.Context, run *classifyRun) stage {
	start := time.Now()
	if uc.handwriting == nil || uc.renderer == nil {
		uc.record(run, domain.TierHandwriting, domain.OutcomeUnavailable, start, nil)
		return stageFallback
	}

	tierCtx, cancel := context.WithTimeout(ctx, uc.opts.HandwritingTimeout)
	defer cancel()

	page, err := uc.renderer.RenderFirstPage(tierCtx, run.doc.Content)
	if err != nil {
		uc.record(run, domain.TierHandwriting, domain.OutcomeError, start, fmt.Errorf("render first page: %w", err))
		return stageFallback
	}

	signal, err := uc.handwriting.DetectHandwriting(tierCtx, page)
	if err != nil {
		uc.record(run, domain.TierHandwriting, domain.OutcomeError, start, err)
		return stageFallback
	}

	switch signal.Verdict {
	case domain.VerdictPositive:
		uc.record(run, domain.TierHandwriting, domain.OutcomeMatched, start, nil)
		run.result.DocumentType = domain.TypeHandwrittenNote
		run.result.SourceStrategy = domain.StrategyHandwriting
		return stageDone
	case domain.VerdictNegative:
		uc.record(run, domain.TierHandwriting, domain.OutcomeDeclined, start, nil)
	default:
		uc.record(run, domain.TierHandwriting, domain.OutcomeInconclusive, start, nil)
	}
	return stageFallback
}

func (uc *ClassifyUseCase) record(run *classifyRun, tier domain.Tier, outcome domain.TierOutcome, start time.Time, err error) {
	elapsed := time.Since(start)
	attempt := domain.TierAttempt{
		Tier:       tier,
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		attempt.Error = strings.TrimSpace(err.Error())
		slog.Warn("classify_tier_degraded",
			"filename", run.doc.Filename,
			"tier", tier,
			"duration_ms", attempt.DurationMS,
			"error", attempt.Error,
		)
	}
	run.attempts = append(run.attempts, attempt)
	if uc.observer != nil {
		uc.observer.ObserveTier(tier, outcome, elapsed)
	}
}
