package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsystem-ai/recording-insights/internal/analysis"
	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/sampler"
	"github.com/newsystem-ai/recording-insights/internal/store"
	"github.com/newsystem-ai/recording-insights/internal/video"
	"github.com/newsystem-ai/recording-insights/pkg/anthropic"
)

// fakeStore records every persistence call in memory.
type fakeStore struct {
	mu        sync.Mutex
	createErr error
	statuses  []model.RunStatus
	steps     []model.StepRecord
	failStep  string
	failMsg   string
	result    *model.AnalysisEnvelope
}

func (f *fakeStore) CreateRun(_ context.Context, rec model.Recording, analysisType string) (*model.Run, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.Run{ID: "run-test", Recording: rec, AnalysisType: analysisType, Status: model.RunStatusPending}, nil
}

func (f *fakeStore) UpdateRunStatus(_ context.Context, _ string, status model.RunStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) RecordStep(_ context.Context, _ string, step model.StepRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step)
	return nil
}

func (f *fakeStore) SetRunResult(_ context.Context, _ string, result *model.AnalysisEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = result
	return nil
}

func (f *fakeStore) FailRun(_ context.Context, _ string, failedStep, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStep = failedStep
	f.failMsg = message
	return nil
}

func (f *fakeStore) GetRun(context.Context, string) (*model.Run, error) { return nil, nil }
func (f *fakeStore) ListRuns(context.Context, store.RunFilter) ([]model.Run, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

type fakeSampler struct {
	strategyErr error
	sampleErr   error
	frames      int
}

func (f *fakeSampler) Strategy(durationSeconds float64, _ sampler.StrategyOverrides) (model.ExtractionStrategy, error) {
	if f.strategyErr != nil {
		return model.ExtractionStrategy{}, f.strategyErr
	}
	return model.ExtractionStrategy{
		Method:          "interval",
		TargetFrames:    f.frames,
		MaxFrames:       f.frames,
		IntervalSeconds: 1,
		DurationSeconds: durationSeconds,
	}, nil
}

func (f *fakeSampler) Sample(_ context.Context, _ video.Source, strategy model.ExtractionStrategy) (*model.ExtractionResult, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	frames := make([]model.Frame, f.frames)
	for i := range frames {
		frames[i] = model.Frame{SequenceNumber: i + 1, FrameIndex: i, TimestampSeconds: float64(i)}
	}
	return &model.ExtractionResult{Frames: frames, Strategy: strategy, CandidateCount: f.frames}, nil
}

type fakeAnalyzer struct {
	err     error
	content map[string]any
	usage   anthropic.TokenUsage
}

func (f *fakeAnalyzer) Analyze(context.Context, []model.Frame, string, string) (*analysis.RawResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.RawResponse{Content: f.content, Usage: f.usage}, nil
}

type fakeNormalizer struct {
	err    error
	result *model.NormalizedResult
}

func (f *fakeNormalizer) Normalize(map[string]any, int) (*model.NormalizedResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeROI struct{}

func (fakeROI) Compute([]model.AutomationOpportunity, float64, float64) *model.ROIResult {
	return &model.ROIResult{ExecutiveSummary: "test summary"}
}

type stubSource struct{ duration float64 }

func (s stubSource) Metadata() video.Metadata {
	return video.Metadata{DurationSeconds: s.duration, NativeFPS: 30}
}
func (s stubSource) ReadFrame(context.Context, float64) (image.Image, error) {
	return nil, eris.New("not implemented")
}
func (s stubSource) Close() error { return nil }

func testPipelineConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{DefaultType: "natural"},
		Pricing:  config.PricingConfig{PerFrameUSD: 0.01, Per1KTokensUSD: 0.02},
	}
}

func newTestPipeline(st *fakeStore, smp FrameSampler, an FrameAnalyzer, norm ResultNormalizer) *Pipeline {
	open := func(context.Context, string) (video.Source, error) {
		return stubSource{duration: 60}, nil
	}
	return New(testPipelineConfig(), st, smp, an, norm, fakeROI{}, open)
}

func successNormalized() *model.NormalizedResult {
	return &model.NormalizedResult{
		Format: model.FormatNatural,
		Workflows: []model.Workflow{
			{Type: "data_entry", Description: "Typing invoice fields"},
		},
		Opportunities: []model.AutomationOpportunity{
			{
				Description:           "Automate invoice entry",
				TimeSavedDailyMinutes: 30,
				TimeSavedAnnualHours:  125,
				CostSavedAnnualUSD:    3125,
			},
		},
		Summary:    model.Summary{CostSavingsAnnualUSD: 3125},
		Confidence: 0.8,
	}
}

func TestRun_Success(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st,
		&fakeSampler{frames: 60},
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}, usage: anthropic.TokenUsage{InputTokens: 4000, OutputTokens: 1000}},
		&fakeNormalizer{result: successNormalized()},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 60},
	})
	require.NoError(t, err)

	assert.True(t, envelope.Success)
	assert.Equal(t, "run-test", envelope.RunID)
	assert.Equal(t, "natural", envelope.AnalysisType)
	assert.Equal(t, 60, envelope.Frames.FramesAnalyzed)
	require.Len(t, envelope.Workflows, 1)
	require.NotNil(t, envelope.ROI)
	assert.Equal(t, int64(5000), envelope.TokensUsed)
	// 60 frames at $0.01 plus 5000 tokens at $0.02 per 1k.
	assert.InDelta(t, 0.70, envelope.EstimatedCostUSD, 0.0001)
	assert.Empty(t, envelope.FailedStep)

	assert.Equal(t, []model.RunStatus{
		model.RunStatusExtracting,
		model.RunStatusAnalyzing,
		model.RunStatusParsing,
	}, st.statuses)

	require.Len(t, st.steps, 3)
	assert.Equal(t, "extracting", st.steps[0].Step)
	assert.Equal(t, 60, st.steps[0].FrameCount)
	assert.Equal(t, "analyzing", st.steps[1].Step)
	assert.Equal(t, int64(5000), st.steps[1].TokensUsed)
	assert.Equal(t, "parsing", st.steps[2].Step)
	assert.Equal(t, 1, st.steps[2].WorkflowsFound)

	require.NotNil(t, st.result)
	assert.True(t, st.result.Success)
}

func TestRun_CreateRunFailure(t *testing.T) {
	st := &fakeStore{createErr: eris.New("store: insert run")}
	p := newTestPipeline(st, &fakeSampler{frames: 10},
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}},
		&fakeNormalizer{result: successNormalized()},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 60},
	})
	require.Error(t, err)

	// Callers read the failure envelope without nil checks, so the
	// create-run path must return one like every later stage.
	require.NotNil(t, envelope)
	assert.False(t, envelope.Success)
	assert.Equal(t, "creating", envelope.FailedStep)
	assert.Contains(t, envelope.Error, "create run")
	assert.Empty(t, envelope.RunID)
	assert.Empty(t, st.statuses)
	assert.Empty(t, st.steps)
}

func TestRun_HourlyRateRepricesOpportunities(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st, &fakeSampler{frames: 10},
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}},
		&fakeNormalizer{result: successNormalized()},
	)

	// 125 annual hours were priced at $25 by the normalizer; a $50
	// request rate must reprice the claim and the summary total.
	envelope, err := p.Run(context.Background(), Request{
		Recording:  model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 60},
		HourlyRate: 50,
	})
	require.NoError(t, err)

	require.Len(t, envelope.Opportunities, 1)
	assert.InDelta(t, 6250.0, envelope.Opportunities[0].CostSavedAnnualUSD, 0.001)
	assert.InDelta(t, 6250.0, envelope.Summary.CostSavingsAnnualUSD, 0.001)
}

func TestRun_DefaultRateKeepsNormalizerPricing(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st, &fakeSampler{frames: 10},
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}},
		&fakeNormalizer{result: successNormalized()},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 60},
	})
	require.NoError(t, err)

	require.Len(t, envelope.Opportunities, 1)
	assert.InDelta(t, 3125.0, envelope.Opportunities[0].CostSavedAnnualUSD, 0.001)
}

func TestRun_ExtractionFailure(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st,
		&fakeSampler{frames: 10, sampleErr: sampler.ErrEmptyExtraction},
		&fakeAnalyzer{},
		&fakeNormalizer{},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 60},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sampler.ErrEmptyExtraction)

	assert.False(t, envelope.Success)
	assert.Equal(t, "extracting", envelope.FailedStep)
	assert.NotEmpty(t, envelope.Error)
	assert.Equal(t, "extracting", st.failStep)
	assert.Empty(t, st.steps)
}

func TestRun_OpenVideoFailure(t *testing.T) {
	st := &fakeStore{}
	open := func(context.Context, string) (video.Source, error) {
		return nil, eris.New("no such file")
	}
	p := New(testPipelineConfig(), st, &fakeSampler{frames: 10}, &fakeAnalyzer{}, &fakeNormalizer{}, fakeROI{}, open)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/missing.mp4"},
	})
	require.Error(t, err)
	assert.Equal(t, "extracting", envelope.FailedStep)
	assert.Contains(t, envelope.Error, "no such file")
}

func TestRun_AnalysisFailure(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st,
		&fakeSampler{frames: 30},
		&fakeAnalyzer{err: eris.New("analysis: model invocation failed: rate_limit_error")},
		&fakeNormalizer{},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 30},
	})
	require.Error(t, err)

	assert.False(t, envelope.Success)
	assert.Equal(t, "analyzing", envelope.FailedStep)
	assert.Contains(t, envelope.Error, "rate_limit")
	assert.Equal(t, "analyzing", st.failStep)

	// The extraction step completed before the failure.
	require.Len(t, st.steps, 1)
	assert.Equal(t, "extracting", st.steps[0].Step)
}

func TestRun_ParsingFailure(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st,
		&fakeSampler{frames: 30},
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}},
		&fakeNormalizer{err: eris.New("parser: nil content")},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 30},
	})
	require.Error(t, err)
	assert.Equal(t, "parsing", envelope.FailedStep)
	assert.Equal(t, "parsing", st.failStep)
	assert.Len(t, st.steps, 2)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st, &fakeSampler{frames: 10}, &fakeAnalyzer{}, &fakeNormalizer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	envelope, err := p.Run(ctx, Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 30},
	})
	require.Error(t, err)
	assert.Equal(t, "extracting", envelope.FailedStep)
	assert.Contains(t, envelope.Error, "cancelled")
}

func TestRun_DurationFromMetadata(t *testing.T) {
	st := &fakeStore{}
	smp := &fakeSampler{frames: 5}
	p := newTestPipeline(st, smp,
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}},
		&fakeNormalizer{result: successNormalized()},
	)

	// No duration on the request; the opener's metadata reports 60s.
	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, envelope.Frames.Strategy.DurationSeconds)
}

func TestRun_DefaultAnalysisType(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st, &fakeSampler{frames: 5},
		&fakeAnalyzer{content: map[string]any{"natural_description": "x"}},
		&fakeNormalizer{result: successNormalized()},
	)

	envelope, err := p.Run(context.Background(), Request{
		Recording: model.Recording{VideoPath: "/tmp/session.mp4", DurationSeconds: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, "natural", envelope.AnalysisType)
}
