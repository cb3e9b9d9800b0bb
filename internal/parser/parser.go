// Package parser normalizes the vision model's historically-evolved
// response schemas into one canonical result. Three incompatible shapes
// exist in production (structured categories, open-ended discovery, and
// frame-indexed natural), and old recordings may be re-processed with any
// prompt family, so every variant is supported indefinitely as an isolated
// parsing strategy.
package parser

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
)

const defaultConfidence = 0.7

// Normalizer converts raw model content into the canonical result model.
type Normalizer struct {
	cfg        config.WorkflowConfig
	hourlyRate float64
}

// NewNormalizer creates a Normalizer. hourlyRate prices the annual time
// savings attributed to each opportunity.
func NewNormalizer(cfg config.WorkflowConfig, hourlyRate float64) *Normalizer {
	return &Normalizer{cfg: cfg, hourlyRate: hourlyRate}
}

// Normalize dispatches on the payload's discriminating key and converts it
// to the canonical model. frameCount is the number of frames analyzed;
// frames are sampled one second apart, so it doubles as the session length
// in seconds. Single-item failures skip the item rather than aborting.
func (n *Normalizer) Normalize(content map[string]any, frameCount int) (*model.NormalizedResult, error) {
	if content == nil {
		return nil, eris.New("parser: nil content")
	}

	var result *model.NormalizedResult
	switch {
	case hasKey(content, "natural_description"):
		result = n.parseNatural(content, frameCount)
	case hasKey(content, "discovered_workflows"):
		result = n.parseDiscovery(content, frameCount)
	case hasKey(content, "raw_response"):
		result = n.parseRaw(content)
	default:
		result = n.parseLegacy(content, frameCount)
	}

	n.finalize(result)

	zap.L().Info("normalized analysis response",
		zap.String("format", string(result.Format)),
		zap.Int("workflows", len(result.Workflows)),
		zap.Int("opportunities", len(result.Opportunities)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Float64("confidence", result.Confidence),
	)

	return result, nil
}

// parseRaw handles the non-JSON recovery wrapper. Nothing can be
// extracted; the raw text is preserved as an insight at low confidence.
func (n *Normalizer) parseRaw(content map[string]any) *model.NormalizedResult {
	raw := getString(content, "raw_response")
	snippet := raw
	if len(snippet) > 500 {
		snippet = snippet[:500] + "..."
	}
	var insights []string
	if snippet != "" {
		insights = []string{"Unstructured model output: " + snippet}
	}
	return &model.NormalizedResult{
		Format:     model.FormatRaw,
		Insights:   insights,
		Confidence: 0.3,
	}
}

// finalize applies the invariants shared by all formats: ranked
// opportunities, capped insights, clamped confidence, and summary totals.
func (n *Normalizer) finalize(r *model.NormalizedResult) {
	sort.SliceStable(r.Opportunities, func(i, j int) bool {
		return r.Opportunities[i].PriorityScore > r.Opportunities[j].PriorityScore
	})

	if n.cfg.MaxInsights > 0 && len(r.Insights) > n.cfg.MaxInsights {
		r.Insights = r.Insights[:n.cfg.MaxInsights]
	}

	r.Confidence = clamp(r.Confidence, 0, 1)

	summary := model.Summary{
		TotalWorkflows:     len(r.Workflows),
		TotalOpportunities: len(r.Opportunities),
	}
	for _, op := range r.Opportunities {
		if op.PriorityScore >= 70 {
			summary.HighPriorityOpportunities++
		}
		summary.TimeSavingsDailyMinutes += op.TimeSavedDailyMinutes
		summary.TimeSavingsWeeklyHours += op.TimeSavedWeeklyHours
		summary.CostSavingsAnnualUSD += op.CostSavedAnnualUSD
	}
	if len(r.Opportunities) > 0 {
		summary.HighestImpactOpportunity = r.Opportunities[0].Description
	}
	r.Summary = summary
}

// deriveOpportunityTimes fills the monotone derived fields from
// frequency and per-occurrence minutes.
func (n *Normalizer) deriveOpportunityTimes(op *model.AutomationOpportunity) {
	if op.FrequencyDaily < 0 {
		op.FrequencyDaily = 0
	}
	if op.TimePerOccurrenceMinutes < 0 {
		op.TimePerOccurrenceMinutes = 0
	}
	op.TimeSavedDailyMinutes = op.FrequencyDaily * op.TimePerOccurrenceMinutes
	op.TimeSavedWeeklyHours = op.TimeSavedDailyMinutes * 5 / 60
	op.TimeSavedAnnualHours = op.TimeSavedDailyMinutes / 60 * 250
	op.CostSavedAnnualUSD = op.TimeSavedAnnualHours * n.hourlyRate
}

func (n *Normalizer) skip(r *model.NormalizedResult, kind string, index int, reason string) {
	r.Skipped = append(r.Skipped, model.SkippedItem{Kind: kind, Index: index, Reason: reason})
	zap.L().Warn("skipped unparseable item",
		zap.String("kind", kind),
		zap.Int("index", index),
		zap.String("reason", reason),
	)
}

// --- tolerant extraction helpers ---
// Model output is adversarial in practice: numbers arrive as strings,
// lists arrive as scalars, and fields go missing. Every accessor defaults
// safely instead of panicking.

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func getString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return fmt.Sprintf("%g", t)
			}
		}
	}
	return ""
}

// getConfidence distinguishes an explicit zero from a missing field: only
// absence falls back to the default.
func getConfidence(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if _, ok := m[key]; ok {
			return getFloat(m, key)
		}
	}
	return defaultConfidence
}

func getFloat(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return t
			case int:
				return float64(t)
			case string:
				var f float64
				if _, err := fmt.Sscanf(strings.TrimSpace(t), "%f", &f); err == nil {
					return f
				}
			}
		}
	}
	return 0
}

func getStringSlice(m map[string]any, keys ...string) []string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if t != "" {
				return []string{t}
			}
		}
	}
	return nil
}

func getMapSlice(m map[string]any, key string) []map[string]any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if mm, ok := item.(map[string]any); ok {
			out = append(out, mm)
		} else {
			out = append(out, nil) // preserved so callers can report the index
		}
	}
	return out
}

func getIntSlice(m map[string]any, keys ...string) []int {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]int, 0, len(items))
		for _, item := range items {
			if f, ok := item.(float64); ok {
				out = append(out, int(f))
			}
		}
		return out
	}
	return nil
}

func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key]; ok {
		if mm, ok := v.(map[string]any); ok {
			return mm
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
