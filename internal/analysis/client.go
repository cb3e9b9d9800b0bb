// Package analysis invokes the vision model on sampled frames and returns
// the raw (JSON-or-text) analysis payload.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/resilience"
	"github.com/newsystem-ai/recording-insights/pkg/anthropic"
)

// RawResponse is the outcome of one model invocation. Content always holds
// a JSON object: either the model's parsed output or, when the body was not
// valid JSON, a wrapper {"raw_response": <text>} the normalizer tolerates.
type RawResponse struct {
	Content map[string]any
	Raw     string
	Usage   anthropic.TokenUsage
}

// Analyzer sends frames plus prompts to the vision model with rate
// limiting, per-attempt timeouts, and bounded retries.
type Analyzer struct {
	client  anthropic.Client
	cfg     config.AnalysisConfig
	anth    config.AnthropicConfig
	limiter *rate.Limiter
}

// NewAnalyzer creates an Analyzer around a shared model client.
func NewAnalyzer(client anthropic.Client, cfg config.AnalysisConfig, anth config.AnthropicConfig) *Analyzer {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &Analyzer{
		client:  client,
		cfg:     cfg,
		anth:    anth,
		limiter: rate.NewLimiter(rate.Limit(rpm/60.0), 1),
	}
}

// Analyze sends one request embedding every frame inline. Requests over the
// configured frame budget fail fast with ErrContextOverflow rather than
// being silently truncated. Model calls are billable and non-deterministic,
// so retries never exceed the configured bound.
func (a *Analyzer) Analyze(ctx context.Context, frames []model.Frame, systemPrompt, userPrompt string) (*RawResponse, error) {
	if len(frames) == 0 {
		return nil, eris.New("analysis: no frames to analyze")
	}
	if len(frames) > a.cfg.MaxFramesPerRequest {
		return nil, eris.Wrapf(ErrContextOverflow, "%d frames exceed the %d frame budget", len(frames), a.cfg.MaxFramesPerRequest)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "analysis: rate limit wait")
	}

	req := a.buildRequest(frames, systemPrompt, userPrompt)

	retryCfg := resilience.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   time.Duration(a.cfg.BackoffBaseSecs * float64(time.Second)),
		ShouldRetry: shouldRetry,
		OnRetry:     resilience.RetryLogger("anthropic", "analyze_frames"),
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		attemptCtx := ctx
		if a.cfg.RequestTimeoutSecs > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.RequestTimeoutSecs)*time.Second)
			defer cancel()
		}
		return a.client.CreateMessage(attemptCtx, req)
	})
	if err != nil {
		if isContextOverflow(err) {
			return nil, eris.Wrap(ErrContextOverflow, err.Error())
		}
		return nil, eris.Wrap(err, "analysis: model invocation failed")
	}

	resp.Usage.LogCost(a.anth.VisionModel, "analysis")

	text := resp.Text()
	content, parseErr := parseJSONContent(text)
	if parseErr != nil {
		// Non-JSON output is recoverable: wrap it and let the normalizer
		// decide what to do with the raw text.
		zap.L().Warn("model returned non-JSON content, wrapping raw text",
			zap.Int("length", len(text)),
			zap.Error(parseErr),
		)
		content = map[string]any{"raw_response": text}
	}

	return &RawResponse{
		Content: content,
		Raw:     text,
		Usage:   resp.Usage,
	}, nil
}

func (a *Analyzer) buildRequest(frames []model.Frame, systemPrompt, userPrompt string) anthropic.MessageRequest {
	parts := make([]anthropic.ContentPart, 0, len(frames)*2+1)
	for i, f := range frames {
		parts = append(parts,
			anthropic.TextPart(frameLabel(i+1, len(frames), f.TimestampFormatted)),
			anthropic.ImagePart("image/jpeg", f.ImageBase64),
		)
	}
	parts = append(parts, anthropic.TextPart(userPrompt))

	temp := a.anth.Temperature
	return anthropic.MessageRequest{
		Model:       a.anth.VisionModel,
		MaxTokens:   a.anth.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Parts: parts}},
		Temperature: &temp,
	}
}

func frameLabel(seq, total int, timestamp string) string {
	return fmt.Sprintf("Frame %d of %d (%s)", seq, total, timestamp)
}

// parseJSONContent parses the model's text output as a JSON object,
// tolerating markdown code fences around the body.
func parseJSONContent(text string) (map[string]any, error) {
	cleaned := stripCodeFences(text)

	var content map[string]any
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return nil, eris.Wrap(err, "analysis: parse response JSON")
	}
	return content, nil
}

// stripCodeFences removes a surrounding ```json ... ``` or ``` ... ``` fence.
func stripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line.
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
