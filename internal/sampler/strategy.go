// Package sampler converts a recording duration and a cost/quality budget
// into a bounded, time-indexed set of JPEG frames for the vision model.
package sampler

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
)

// StrategyOverrides carries caller-supplied overrides for one request.
// Zero values mean "use configured defaults".
type StrategyOverrides struct {
	TargetFPS float64
	MaxFrames int
	Mode      model.ExtractionMode
}

// ComputeStrategy builds the sampling plan for one recording. The target
// fps is clamped to the configured range and the frame budget is bounded
// below by MinFrames and above by MaxFrames.
func ComputeStrategy(cfg config.ExtractionConfig, pricing config.PricingConfig, durationSeconds float64, ov StrategyOverrides) (model.ExtractionStrategy, error) {
	if durationSeconds <= 0 {
		return model.ExtractionStrategy{}, eris.Errorf("sampler: invalid duration %.3fs", durationSeconds)
	}

	mode := model.ExtractionMode(cfg.Mode)
	fps := cfg.TargetFPS
	maxFrames := cfg.MaxFrames

	if ov.Mode != "" {
		mode = ov.Mode
	}
	if ov.TargetFPS > 0 {
		fps = ov.TargetFPS
		mode = model.ExtractionModeCustom
	}
	if ov.MaxFrames > 0 {
		maxFrames = ov.MaxFrames
		mode = model.ExtractionModeCustom
	}

	if fps < cfg.MinFPS {
		fps = cfg.MinFPS
	}
	if fps > cfg.MaxFPS {
		fps = cfg.MaxFPS
	}
	if maxFrames < 1 {
		maxFrames = 1
	}

	targetFrames := int(durationSeconds * fps)
	if targetFrames > maxFrames {
		targetFrames = maxFrames
	}
	if targetFrames < cfg.MinFrames {
		targetFrames = cfg.MinFrames
	}

	strategy := model.ExtractionStrategy{
		Method:          "interval",
		Mode:            mode,
		TargetFPS:       fps,
		IntervalSeconds: 1 / fps,
		TargetFrames:    targetFrames,
		MaxFrames:       maxFrames,
		SceneDetection:  cfg.SceneDetection,
		SceneThreshold:  cfg.SceneThreshold,
		DurationSeconds: durationSeconds,
		EstimatedCost:   float64(targetFrames) * pricing.PerFrameUSD,
	}

	zap.L().Debug("computed extraction strategy",
		zap.Float64("duration_seconds", durationSeconds),
		zap.Float64("target_fps", fps),
		zap.Int("target_frames", targetFrames),
		zap.Int("max_frames", maxFrames),
		zap.Float64("estimated_cost_usd", strategy.EstimatedCost),
	)

	return strategy, nil
}

// FormatTimestamp renders seconds as MM:SS, or HH:MM:SS past an hour.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
