package sampler

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/video"
)

// ErrEmptyExtraction is returned when no frame at all could be decoded.
// Partial coverage degrades the run; zero coverage fails it.
var ErrEmptyExtraction = eris.New("sampler: no frames could be extracted")

// Sampler extracts timestamped JPEG frames from a video source according
// to an extraction strategy.
type Sampler struct {
	cfg     config.ExtractionConfig
	pricing config.PricingConfig
}

// New creates a Sampler.
func New(cfg config.ExtractionConfig, pricing config.PricingConfig) *Sampler {
	return &Sampler{cfg: cfg, pricing: pricing}
}

// Strategy computes the sampling plan for a recording of the given duration.
func (s *Sampler) Strategy(durationSeconds float64, ov StrategyOverrides) (model.ExtractionStrategy, error) {
	return ComputeStrategy(s.cfg, s.pricing, durationSeconds, ov)
}

// Sample extracts frames from src per the strategy. Candidate offsets are
// 0, interval, 2*interval, ... until the offset reaches the duration or the
// candidate count reaches the frame budget. Decode failures are skipped;
// fewer than the configured coverage fraction degrades the result, zero
// frames is fatal.
func (s *Sampler) Sample(ctx context.Context, src video.Source, strategy model.ExtractionStrategy) (*model.ExtractionResult, error) {
	meta := src.Metadata()
	if strategy.DurationSeconds <= 0 {
		return nil, eris.Errorf("sampler: invalid duration %.3fs", strategy.DurationSeconds)
	}

	nativeFPS := meta.NativeFPS
	if nativeFPS <= 0 {
		nativeFPS = s.cfg.FallbackFPS
	}

	// Candidate generation.
	type candidate struct {
		offset     float64
		frameIndex int
	}
	var candidates []candidate
	lastIndex := -1
	for i := 0; ; i++ {
		offset := float64(i) * strategy.IntervalSeconds
		if offset >= strategy.DurationSeconds || len(candidates) >= strategy.MaxFrames {
			break
		}
		idx := int(math.Round(offset * nativeFPS))
		if meta.TotalFrames > 0 && idx > meta.TotalFrames-1 {
			idx = meta.TotalFrames - 1
		}
		if idx < 0 {
			idx = 0
		}
		// Indices must be strictly increasing; dense sampling of a short
		// recording can collapse neighboring offsets onto one frame.
		if idx <= lastIndex {
			continue
		}
		lastIndex = idx
		candidates = append(candidates, candidate{offset: offset, frameIndex: idx})
	}

	if len(candidates) == 0 {
		return nil, ErrEmptyExtraction
	}

	var (
		frames   []model.Frame
		failures int
		lastHist [histogramBins]float64
		haveLast bool
	)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "sampler: cancelled")
		}

		img, err := src.ReadFrame(ctx, c.offset)
		if err != nil {
			failures++
			zap.L().Warn("frame decode failed",
				zap.Int("frame_index", c.frameIndex),
				zap.Float64("offset_seconds", c.offset),
				zap.Error(err),
			)
			continue
		}

		if strategy.SceneDetection {
			hist := luminanceHistogram(img)
			if haveLast && changeRatio(lastHist, hist) < strategy.SceneThreshold {
				continue
			}
			lastHist = hist
			haveLast = true
		}

		data, w, h, size, err := encodeFrame(img, s.cfg.JPEGQuality, s.cfg.MaxDimensionPx)
		if err != nil {
			failures++
			zap.L().Warn("frame encode failed", zap.Int("frame_index", c.frameIndex), zap.Error(err))
			continue
		}

		ts := float64(c.frameIndex) / nativeFPS
		frames = append(frames, model.Frame{
			SequenceNumber:     len(frames) + 1,
			FrameIndex:         c.frameIndex,
			TimestampSeconds:   ts,
			TimestampFormatted: FormatTimestamp(ts),
			ImageBase64:        data,
			Width:              w,
			Height:             h,
			SizeBytes:          size,
		})
	}

	if len(frames) == 0 {
		return nil, ErrEmptyExtraction
	}

	result := &model.ExtractionResult{
		Frames:         frames,
		Strategy:       strategy,
		CandidateCount: len(candidates),
	}

	decoded := len(candidates) - failures
	if float64(decoded) < float64(len(candidates))*s.cfg.DegradedPercent {
		result.Degraded = true
		result.Warning = fmt.Sprintf("degraded extraction: only %d of %d candidate frames decoded", decoded, len(candidates))
		zap.L().Warn("degraded extraction",
			zap.Int("decoded", decoded),
			zap.Int("candidates", len(candidates)),
		)
	}

	if s.pricing.WarnAboveUSD > 0 && strategy.EstimatedCost > s.pricing.WarnAboveUSD {
		result.CostWarning = fmt.Sprintf("estimated analysis cost $%.2f exceeds $%.2f threshold", strategy.EstimatedCost, s.pricing.WarnAboveUSD)
	}

	zap.L().Info("extraction complete",
		zap.Int("frames", len(frames)),
		zap.Int("candidates", len(candidates)),
		zap.Int("failures", failures),
		zap.Bool("degraded", result.Degraded),
	)

	return result, nil
}
