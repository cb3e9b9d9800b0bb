package parser

import (
	"github.com/newsystem-ai/recording-insights/internal/model"
)

// parseLegacy handles the original structured-category format: workflow
// and opportunity lists under workflows_detected / automation_opportunities
// with explicit durations and frequencies.
func (n *Normalizer) parseLegacy(content map[string]any, frameCount int) *model.NormalizedResult {
	result := &model.NormalizedResult{Format: model.FormatStructured}

	ta := getMap(content, "time_analysis")
	totalSeconds := getFloat(ta, "total_seconds")
	if totalSeconds <= 0 {
		totalSeconds = float64(frameCount)
	}
	if totalSeconds < 1 {
		totalSeconds = 1
	}

	for i, wf := range getMapSlice(content, "workflows_detected") {
		if wf == nil {
			n.skip(result, "workflow", i, "not an object")
			continue
		}
		description := getString(wf, "description")
		if description == "" {
			n.skip(result, "workflow", i, "missing description")
			continue
		}

		applications := getStringSlice(wf, "applications")
		steps := getStringSlice(wf, "steps")
		duration := getFloat(wf, "duration_seconds")
		if duration < 0 {
			duration = 0
		}
		repetitive := clamp(getFloat(wf, "repetitive_score"), 0, 1)

		wfType := getString(wf, "type")
		if wfType == "" || wfType == "unknown" {
			wfType = InferWorkflowType(n.cfg.Categories, workflowSearchText(description, applications, steps))
		}

		timePct := duration / totalSeconds * 100
		result.Workflows = append(result.Workflows, model.Workflow{
			Type:            wfType,
			Description:     description,
			Applications:    applications,
			Steps:           steps,
			DurationSeconds: duration,
			DataTypes:       getStringSlice(wf, "data_types"),
			RepetitiveScore: repetitive,
			PriorityScore:   WorkflowPriority(n.cfg, repetitive, wfType, timePct),
		})
	}

	for i, op := range getMapSlice(content, "automation_opportunities") {
		if op == nil {
			n.skip(result, "opportunity", i, "not an object")
			continue
		}
		description := getString(op, "description")
		if description == "" {
			n.skip(result, "opportunity", i, "missing description")
			continue
		}

		opp := model.AutomationOpportunity{
			WorkflowType:             getString(op, "workflow_type"),
			Description:              description,
			FrequencyDaily:           getFloat(op, "frequency_daily"),
			TimePerOccurrenceMinutes: getFloat(op, "time_per_occurrence_minutes"),
			AutomationPotential:      normalizeLevel(getString(op, "automation_potential"), "medium"),
			ImplementationComplexity: normalizeLevel(getString(op, "implementation_complexity"), "medium"),
			Recommendation:           getString(op, "recommendation"),
		}
		if opp.WorkflowType == "" {
			opp.WorkflowType = InferWorkflowType(n.cfg.Categories, description)
		}
		n.deriveOpportunityTimes(&opp)
		opp.PriorityScore = OpportunityPriority(n.cfg, opp.AutomationPotential, opp.ImplementationComplexity, opp.TimeSavedDailyMinutes)
		result.Opportunities = append(result.Opportunities, opp)
	}

	result.Insights = getStringSlice(content, "insights")
	result.Confidence = getConfidence(content, "confidence_score", "confidence")

	parsed := model.TimeAnalysis{
		TotalSeconds:      totalSeconds,
		ProductivePercent: clamp(getFloat(ta, "productive_percent"), 0, 100),
	}
	if cats := getMap(ta, "category_seconds"); cats != nil {
		parsed.CategorySeconds = map[string]float64{}
		var sum float64
		for k, v := range cats {
			if f, ok := v.(float64); ok && f >= 0 {
				parsed.CategorySeconds[k] = f
				sum += f
			}
		}
		if sum < totalSeconds {
			parsed.OtherSeconds = totalSeconds - sum
		}
	}
	result.TimeAnalysis = parsed

	return result
}

// normalizeLevel coerces a high/medium/low field to the canonical
// vocabulary, falling back when the model invents something else.
func normalizeLevel(s, fallback string) string {
	switch s {
	case "high", "medium", "low":
		return s
	default:
		return fallback
	}
}
