package parser

import (
	"github.com/newsystem-ai/recording-insights/internal/model"
)

// parseDiscovery handles the open-ended discovery format: workflows are
// named rather than categorized, and unusual patterns arrive as free text.
func (n *Normalizer) parseDiscovery(content map[string]any, frameCount int) *model.NormalizedResult {
	result := &model.NormalizedResult{Format: model.FormatDiscovery}

	sessionSeconds := float64(frameCount)
	if sessionSeconds < 1 {
		sessionSeconds = 1
	}

	for i, wf := range getMapSlice(content, "discovered_workflows") {
		if wf == nil {
			n.skip(result, "workflow", i, "not an object")
			continue
		}
		description := getString(wf, "description", "name")
		if description == "" {
			n.skip(result, "workflow", i, "missing description")
			continue
		}
		if name := getString(wf, "name"); name != "" && name != description {
			description = name + ": " + description
		}

		applications := getStringSlice(wf, "applications")
		steps := getStringSlice(wf, "observed_steps", "steps")
		duration := getFloat(wf, "estimated_duration_seconds", "duration_seconds")
		if duration < 0 {
			duration = 0
		}
		repetitive := clamp(getFloat(wf, "repetitive_score", "repetitive"), 0, 1)

		wfType := InferWorkflowType(n.cfg.Categories, workflowSearchText(description, applications, steps))

		timePct := duration / sessionSeconds * 100
		result.Workflows = append(result.Workflows, model.Workflow{
			Type:            wfType,
			Description:     description,
			Applications:    applications,
			Steps:           steps,
			DurationSeconds: duration,
			RepetitiveScore: repetitive,
			PriorityScore:   WorkflowPriority(n.cfg, repetitive, wfType, timePct),
		})
	}

	for i, op := range getMapSlice(content, "automation_opportunities") {
		if op == nil {
			n.skip(result, "opportunity", i, "not an object")
			continue
		}
		description := getString(op, "description", "task")
		if description == "" {
			n.skip(result, "opportunity", i, "missing description")
			continue
		}

		opp := model.AutomationOpportunity{
			WorkflowType:             InferWorkflowType(n.cfg.Categories, description),
			Description:              description,
			FrequencyDaily:           getFloat(op, "frequency_daily"),
			TimePerOccurrenceMinutes: getFloat(op, "time_per_occurrence_minutes"),
			AutomationPotential:      normalizeLevel(getString(op, "automation_potential"), "medium"),
			ImplementationComplexity: normalizeLevel(getString(op, "implementation_complexity"), "medium"),
		}
		if opp.FrequencyDaily == 0 && opp.TimePerOccurrenceMinutes == 0 {
			// Some discovery outputs only carry a free-text claim.
			opp.FrequencyDaily = 1
			opp.TimePerOccurrenceMinutes = ParseDailyMinutes(getString(op, "timeSaved", "time_saved"))
		}
		n.deriveOpportunityTimes(&opp)
		opp.PriorityScore = OpportunityPriority(n.cfg, opp.AutomationPotential, opp.ImplementationComplexity, opp.TimeSavedDailyMinutes)
		result.Opportunities = append(result.Opportunities, opp)
	}

	result.Insights = getStringSlice(content, "unique_patterns", "insights")
	result.Confidence = getConfidence(content, "confidence_score", "confidence")

	ta := model.TimeAnalysis{
		TotalSeconds:    sessionSeconds,
		CategorySeconds: map[string]float64{},
	}
	var categorySeconds float64
	for _, wf := range result.Workflows {
		ta.CategorySeconds[wf.Type] += wf.DurationSeconds
		categorySeconds += wf.DurationSeconds
	}
	if categorySeconds < ta.TotalSeconds {
		ta.OtherSeconds = ta.TotalSeconds - categorySeconds
	}
	if ta.TotalSeconds > 0 {
		ta.ProductivePercent = clamp(categorySeconds/ta.TotalSeconds, 0, 1) * 100
	}
	result.TimeAnalysis = ta

	return result
}
