package parser

import (
	"github.com/newsystem-ai/recording-insights/internal/model"
)

// parseNatural handles the frame-indexed natural format. Durations are
// reconstructed from visible_in_frames lists; opportunities carry
// free-text time-savings claims and a simple/moderate/complex vocabulary.
func (n *Normalizer) parseNatural(content map[string]any, frameCount int) *model.NormalizedResult {
	result := &model.NormalizedResult{Format: model.FormatNatural}

	sessionSeconds := float64(frameCount)
	if sessionSeconds < 1 {
		sessionSeconds = 1
	}

	for i, wf := range getMapSlice(content, "observed_workflows") {
		if wf == nil {
			n.skip(result, "workflow", i, "not an object")
			continue
		}
		description := getString(wf, "description", "name")
		if description == "" {
			n.skip(result, "workflow", i, "missing description")
			continue
		}

		applications := getStringSlice(wf, "applications", "apps")
		steps := getStringSlice(wf, "steps", "observed_steps")
		frames := getIntSlice(wf, "visible_in_frames", "frames")
		duration, ranges := DurationFromFrames(frames)
		repetitive := clamp(getFloat(wf, "repetitive", "repetitive_score"), 0, 1)

		wfType := getString(wf, "type", "workflow_type")
		if wfType == "" || wfType == "unknown" {
			wfType = InferWorkflowType(n.cfg.Categories, workflowSearchText(description, applications, steps))
		}

		timePct := duration / sessionSeconds * 100
		result.Workflows = append(result.Workflows, model.Workflow{
			Type:            wfType,
			Description:     description,
			Applications:    applications,
			Steps:           steps,
			DurationSeconds: duration,
			DataTypes:       getStringSlice(wf, "data_types"),
			RepetitiveScore: repetitive,
			PriorityScore:   WorkflowPriority(n.cfg, repetitive, wfType, timePct),
			FrameRanges:     ranges,
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

		complexity := getString(op, "complexity", "implementation_complexity")
		opp := model.AutomationOpportunity{
			WorkflowType:             getString(op, "workflow_type"),
			Description:              description,
			FrequencyDaily:           1,
			TimePerOccurrenceMinutes: ParseDailyMinutes(getString(op, "timeSaved", "time_saved")),
			AutomationPotential:      complexityToPotential(complexity),
			ImplementationComplexity: complexityToLevel(complexity),
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
	result.Confidence = getConfidence(content, "confidence", "confidence_score")

	var categorySeconds float64
	ta := model.TimeAnalysis{
		TotalSeconds:    sessionSeconds,
		CategorySeconds: map[string]float64{},
	}
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
