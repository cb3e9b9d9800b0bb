package sampler

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/video"
)

// fakeSource serves synthetic frames for a recording of fixed duration.
type fakeSource struct {
	meta video.Metadata
	// failAt marks offsets (in whole seconds) whose decode fails.
	failAt map[int]bool
	// colorAt overrides the uniform frame color per whole second.
	colorAt func(sec int) color.RGBA
	reads   int
}

func newFakeSource(durationSeconds float64, fps float64) *fakeSource {
	return &fakeSource{
		meta: video.Metadata{
			Path:            "fake.mp4",
			DurationSeconds: durationSeconds,
			NativeFPS:       fps,
			TotalFrames:     int(durationSeconds * fps),
			Width:           64,
			Height:          48,
		},
	}
}

func (f *fakeSource) Metadata() video.Metadata { return f.meta }

func (f *fakeSource) ReadFrame(_ context.Context, ts float64) (image.Image, error) {
	f.reads++
	sec := int(ts)
	if f.failAt[sec] {
		return nil, eris.New("decode failed")
	}
	c := color.RGBA{R: uint8(sec * 13 % 256), G: 100, B: 150, A: 255}
	if f.colorAt != nil {
		c = f.colorAt(sec)
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	return img, nil
}

func (f *fakeSource) Close() error { return nil }

func testExtractionConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		Mode:            "production",
		TargetFPS:       1.0,
		MinFPS:          0.05,
		MaxFPS:          2.0,
		MaxFrames:       30,
		MinFrames:       5,
		SceneDetection:  false,
		SceneThreshold:  0.3,
		JPEGQuality:     85,
		MaxDimensionPx:  2048,
		FallbackFPS:     30,
		DegradedPercent: 0.5,
	}
}

func testPricing() config.PricingConfig {
	return config.PricingConfig{PerFrameUSD: 0.01, Per1KTokensUSD: 0.02, WarnAboveUSD: 5.0}
}

func TestSample_SixtySecondsAtOneFPS(t *testing.T) {
	src := newFakeSource(60, 1)
	s := New(testExtractionConfig(), testPricing())

	strategy, err := s.Strategy(60, StrategyOverrides{MaxFrames: 120})
	require.NoError(t, err)

	result, err := s.Sample(context.Background(), src, strategy)
	require.NoError(t, err)
	require.Len(t, result.Frames, 60)

	for i, f := range result.Frames {
		assert.Equal(t, i, f.FrameIndex)
		assert.Equal(t, i+1, f.SequenceNumber)
		assert.InDelta(t, float64(i), f.TimestampSeconds, 0.001)
	}
	assert.False(t, result.Degraded)
}

func TestSample_IndicesStrictlyIncreasing(t *testing.T) {
	src := newFakeSource(25, 30)
	s := New(testExtractionConfig(), testPricing())

	strategy, err := s.Strategy(25, StrategyOverrides{})
	require.NoError(t, err)

	result, err := s.Sample(context.Background(), src, strategy)
	require.NoError(t, err)
	require.NotEmpty(t, result.Frames)
	assert.LessOrEqual(t, len(result.Frames), strategy.MaxFrames)

	for i := 1; i < len(result.Frames); i++ {
		assert.Greater(t, result.Frames[i].FrameIndex, result.Frames[i-1].FrameIndex)
	}
}

func TestSample_RespectsMaxFrames(t *testing.T) {
	src := newFakeSource(300, 30)
	s := New(testExtractionConfig(), testPricing())

	strategy, err := s.Strategy(300, StrategyOverrides{})
	require.NoError(t, err)

	result, err := s.Sample(context.Background(), src, strategy)
	require.NoError(t, err)
	assert.Len(t, result.Frames, 30)
}

func TestSample_DegradedWhenMostDecodesFail(t *testing.T) {
	src := newFakeSource(10, 1)
	src.failAt = map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true}

	s := New(testExtractionConfig(), testPricing())
	strategy, err := s.Strategy(10, StrategyOverrides{})
	require.NoError(t, err)

	result, err := s.Sample(context.Background(), src, strategy)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Contains(t, result.Warning, "degraded extraction")
	assert.Len(t, result.Frames, 4)
}

func TestSample_AllDecodesFail_Fatal(t *testing.T) {
	src := newFakeSource(5, 1)
	src.failAt = map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true}

	s := New(testExtractionConfig(), testPricing())
	strategy, err := s.Strategy(5, StrategyOverrides{})
	require.NoError(t, err)

	_, err = s.Sample(context.Background(), src, strategy)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyExtraction)
}

func TestSample_SceneFilterSkipsStaticFrames(t *testing.T) {
	src := newFakeSource(10, 1)
	// Same color everywhere: only the first frame survives the filter.
	src.colorAt = func(int) color.RGBA { return color.RGBA{R: 120, G: 120, B: 120, A: 255} }

	cfg := testExtractionConfig()
	cfg.SceneDetection = true
	s := New(cfg, testPricing())

	strategy, err := s.Strategy(10, StrategyOverrides{})
	require.NoError(t, err)
	require.True(t, strategy.SceneDetection)

	result, err := s.Sample(context.Background(), src, strategy)
	require.NoError(t, err)
	assert.Len(t, result.Frames, 1)
}

func TestSample_CostWarningAboveThreshold(t *testing.T) {
	src := newFakeSource(600, 1)
	pricing := testPricing()
	pricing.PerFrameUSD = 0.50 // 30 frames * $0.50 = $15 > $5 threshold

	s := New(testExtractionConfig(), pricing)
	strategy, err := s.Strategy(600, StrategyOverrides{})
	require.NoError(t, err)

	result, err := s.Sample(context.Background(), src, strategy)
	require.NoError(t, err)
	assert.Contains(t, result.CostWarning, "exceeds")
}

func TestSample_ContextCancelled(t *testing.T) {
	src := newFakeSource(30, 1)
	s := New(testExtractionConfig(), testPricing())

	strategy, err := s.Strategy(30, StrategyOverrides{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Sample(ctx, src, strategy)
	require.Error(t, err)
}

func TestComputeStrategy_ClampsFPS(t *testing.T) {
	cfg := testExtractionConfig()

	st, err := ComputeStrategy(cfg, testPricing(), 60, StrategyOverrides{TargetFPS: 99})
	require.NoError(t, err)
	assert.InDelta(t, cfg.MaxFPS, st.TargetFPS, 0.001)

	st, err = ComputeStrategy(cfg, testPricing(), 60, StrategyOverrides{TargetFPS: 0.001})
	require.NoError(t, err)
	assert.InDelta(t, cfg.MinFPS, st.TargetFPS, 0.001)
}

func TestComputeStrategy_IntervalIsInverseFPS(t *testing.T) {
	st, err := ComputeStrategy(testExtractionConfig(), testPricing(), 120, StrategyOverrides{TargetFPS: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, st.IntervalSeconds, 0.001)
	assert.Equal(t, model.ExtractionModeCustom, st.Mode)
}

func TestComputeStrategy_InvalidDuration(t *testing.T) {
	_, err := ComputeStrategy(testExtractionConfig(), testPricing(), 0, StrategyOverrides{})
	require.Error(t, err)

	_, err = ComputeStrategy(testExtractionConfig(), testPricing(), -5, StrategyOverrides{})
	require.Error(t, err)
}

func TestComputeStrategy_MinFrameFloor(t *testing.T) {
	st, err := ComputeStrategy(testExtractionConfig(), testPricing(), 2, StrategyOverrides{})
	require.NoError(t, err)
	assert.Equal(t, 5, st.TargetFrames)
}

func TestComputeStrategy_EstimatedCost(t *testing.T) {
	st, err := ComputeStrategy(testExtractionConfig(), testPricing(), 600, StrategyOverrides{})
	require.NoError(t, err)
	// 30 frames * $0.01
	assert.InDelta(t, 0.30, st.EstimatedCost, 0.001)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", FormatTimestamp(0))
	assert.Equal(t, "00:59", FormatTimestamp(59.4))
	assert.Equal(t, "01:05", FormatTimestamp(65))
	assert.Equal(t, "01:00:01", FormatTimestamp(3601))
}
