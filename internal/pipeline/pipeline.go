// Package pipeline orchestrates one analysis run: frame extraction, vision
// model invocation, result normalization, and ROI derivation. The
// orchestrator owns run state transitions and persistence; stage-internal
// concerns such as retries stay inside the stages.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/analysis"
	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/sampler"
	"github.com/newsystem-ai/recording-insights/internal/store"
	"github.com/newsystem-ai/recording-insights/internal/video"
)

// FrameSampler plans and performs frame extraction.
type FrameSampler interface {
	Strategy(durationSeconds float64, ov sampler.StrategyOverrides) (model.ExtractionStrategy, error)
	Sample(ctx context.Context, src video.Source, strategy model.ExtractionStrategy) (*model.ExtractionResult, error)
}

// FrameAnalyzer invokes the vision model on extracted frames.
type FrameAnalyzer interface {
	Analyze(ctx context.Context, frames []model.Frame, systemPrompt, userPrompt string) (*analysis.RawResponse, error)
}

// ResultNormalizer converts raw model content into the canonical result.
type ResultNormalizer interface {
	Normalize(content map[string]any, frameCount int) (*model.NormalizedResult, error)
}

// ROICalculator derives financial metrics from normalized opportunities.
type ROICalculator interface {
	Compute(opportunities []model.AutomationOpportunity, hourlyRate, budgetUSD float64) *model.ROIResult
}

// VideoOpener opens a recording for frame access.
type VideoOpener func(ctx context.Context, path string) (video.Source, error)

// Request describes one analysis invocation.
type Request struct {
	Recording    model.Recording
	AnalysisType string
	Overrides    sampler.StrategyOverrides
	HourlyRate   float64
	BudgetUSD    float64
}

// Pipeline runs the full analysis for a recording.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	sampler    FrameSampler
	analyzer   FrameAnalyzer
	normalizer ResultNormalizer
	roi        ROICalculator
	openVideo  VideoOpener
}

// New creates a Pipeline with all dependencies injected.
func New(
	cfg *config.Config,
	st store.Store,
	smp FrameSampler,
	an FrameAnalyzer,
	norm ResultNormalizer,
	roiCalc ROICalculator,
	open VideoOpener,
) *Pipeline {
	if open == nil {
		open = func(ctx context.Context, path string) (video.Source, error) {
			return video.Open(ctx, path)
		}
	}
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		sampler:    smp,
		analyzer:   an,
		normalizer: norm,
		roi:        roiCalc,
		openVideo:  open,
	}
}

// Run executes the pipeline for one recording. The returned envelope is
// always populated: a success envelope on completion, a failure envelope
// carrying the failed step otherwise. The error mirrors the failure for
// callers that only check err.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.AnalysisEnvelope, error) {
	start := time.Now()

	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = p.cfg.Analysis.DefaultType
	}

	log := zap.L().With(
		zap.String("video", req.Recording.VideoPath),
		zap.String("analysis_type", analysisType),
	)
	log.Info("pipeline: starting analysis")

	run, err := p.store.CreateRun(ctx, req.Recording, analysisType)
	if err != nil {
		createErr := eris.Wrap(err, "pipeline: create run")
		log.Error("pipeline: stage failed", zap.String("step", "creating"), zap.Error(createErr))
		// No run record exists yet, so there is nothing to persist; the
		// caller still gets the structured failure envelope.
		return &model.AnalysisEnvelope{
			AnalysisType:      analysisType,
			FailedStep:        "creating",
			Error:             createErr.Error(),
			ProcessingSeconds: time.Since(start).Seconds(),
		}, createErr
	}

	envelope := &model.AnalysisEnvelope{
		RunID:        run.ID,
		AnalysisType: analysisType,
	}

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}
	recordStep := func(step model.StepRecord) {
		step.CompletedAt = time.Now().UTC()
		if stepErr := p.store.RecordStep(ctx, run.ID, step); stepErr != nil {
			log.Warn("pipeline: failed to record step", zap.String("step", step.Step), zap.Error(stepErr))
		}
	}
	fail := func(step string, failErr error) (*model.AnalysisEnvelope, error) {
		log.Error("pipeline: stage failed", zap.String("step", step), zap.Error(failErr))
		// A cancelled run's late failure is still persisted best-effort;
		// the store call uses its own short deadline semantics.
		if dbErr := p.store.FailRun(ctx, run.ID, step, failErr.Error()); dbErr != nil {
			log.Warn("pipeline: failed to persist failure", zap.Error(dbErr))
		}
		envelope.Success = false
		envelope.FailedStep = step
		envelope.Error = failErr.Error()
		envelope.ProcessingSeconds = time.Since(start).Seconds()
		return envelope, failErr
	}

	// Stage 1: extraction.
	if err := ctx.Err(); err != nil {
		return fail("extracting", eris.Wrap(err, "pipeline: cancelled"))
	}
	setStatus(model.RunStatusExtracting)

	extraction, err := p.extract(ctx, req)
	if err != nil {
		return fail("extracting", err)
	}
	recordStep(model.StepRecord{Step: "extracting", FrameCount: len(extraction.Frames)})
	envelope.Frames = model.FrameStats{
		FramesAnalyzed: len(extraction.Frames),
		Strategy:       extraction.Strategy,
		Degraded:       extraction.Degraded,
		Warning:        extraction.Warning,
	}

	// Stage 2: vision analysis.
	if err := ctx.Err(); err != nil {
		return fail("analyzing", eris.Wrap(err, "pipeline: cancelled"))
	}
	setStatus(model.RunStatusAnalyzing)

	systemPrompt := analysis.SystemPrompt(analysisType)
	userPrompt := analysis.UserPrompt(analysisType, len(extraction.Frames),
		sampler.FormatTimestamp(extraction.Strategy.DurationSeconds))
	raw, err := p.analyzer.Analyze(ctx, extraction.Frames, systemPrompt, userPrompt)
	if err != nil {
		return fail("analyzing", err)
	}
	tokens := raw.Usage.Total()
	recordStep(model.StepRecord{Step: "analyzing", TokensUsed: tokens})

	// Stage 3: normalization plus ROI.
	if err := ctx.Err(); err != nil {
		return fail("parsing", eris.Wrap(err, "pipeline: cancelled"))
	}
	setStatus(model.RunStatusParsing)

	normalized, err := p.normalizer.Normalize(raw.Content, len(extraction.Frames))
	if err != nil {
		return fail("parsing", err)
	}
	recordStep(model.StepRecord{
		Step:               "parsing",
		WorkflowsFound:     len(normalized.Workflows),
		OpportunitiesFound: len(normalized.Opportunities),
	})

	// A per-request rate reprices the normalized claims so a single rate
	// holds across the whole envelope, opportunities and ROI alike.
	if req.HourlyRate > 0 {
		repriceOpportunities(normalized, req.HourlyRate)
	}
	roiResult := p.roi.Compute(normalized.Opportunities, req.HourlyRate, req.BudgetUSD)

	envelope.Success = true
	envelope.Workflows = normalized.Workflows
	envelope.Opportunities = normalized.Opportunities
	envelope.Insights = normalized.Insights
	envelope.TimeAnalysis = normalized.TimeAnalysis
	envelope.Summary = normalized.Summary
	envelope.Confidence = normalized.Confidence
	envelope.ROI = roiResult
	envelope.TokensUsed = tokens
	envelope.EstimatedCostUSD = p.estimateCost(len(extraction.Frames), tokens)
	envelope.ProcessingSeconds = time.Since(start).Seconds()

	if err := p.store.SetRunResult(ctx, run.ID, envelope); err != nil {
		log.Warn("pipeline: failed to persist result", zap.Error(err))
	}

	log.Info("pipeline: analysis complete",
		zap.Int("frames", len(extraction.Frames)),
		zap.Int("workflows", len(normalized.Workflows)),
		zap.Int("opportunities", len(normalized.Opportunities)),
		zap.Int64("tokens", tokens),
		zap.Float64("elapsed_seconds", envelope.ProcessingSeconds),
	)
	return envelope, nil
}

func (p *Pipeline) extract(ctx context.Context, req Request) (*model.ExtractionResult, error) {
	src, err := p.openVideo(ctx, req.Recording.VideoPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open recording %s", req.Recording.VideoPath)
	}
	defer src.Close()

	duration := req.Recording.DurationSeconds
	if duration <= 0 {
		duration = src.Metadata().DurationSeconds
	}

	strategy, err := p.sampler.Strategy(duration, req.Overrides)
	if err != nil {
		return nil, err
	}
	return p.sampler.Sample(ctx, src, strategy)
}

// repriceOpportunities re-derives the cost fields from annual hours at the
// requested rate, including the summary total.
func repriceOpportunities(r *model.NormalizedResult, hourlyRate float64) {
	var total float64
	for i := range r.Opportunities {
		r.Opportunities[i].CostSavedAnnualUSD = r.Opportunities[i].TimeSavedAnnualHours * hourlyRate
		total += r.Opportunities[i].CostSavedAnnualUSD
	}
	r.Summary.CostSavingsAnnualUSD = total
}

// estimateCost is a best-effort total for reporting, not billing.
func (p *Pipeline) estimateCost(frameCount int, tokens int64) float64 {
	return float64(frameCount)*p.cfg.Pricing.PerFrameUSD +
		float64(tokens)/1000*p.cfg.Pricing.Per1KTokensUSD
}
