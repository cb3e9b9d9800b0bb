package parser

import (
	"math"

	"github.com/newsystem-ai/recording-insights/internal/config"
)

// WorkflowPriority scores a workflow in [0,1]. Repetitiveness carries the
// score, boosted for configured high-priority types; time consumption
// contributes a capped amount so one dominant but non-repetitive workflow
// cannot crowd out genuinely repetitive ones. The weights are empirically
// tuned and live in configuration.
func WorkflowPriority(cfg config.WorkflowConfig, repetitiveScore float64, workflowType string, timePercentage float64) float64 {
	repetitiveScore = clamp(repetitiveScore, 0, 1)

	boost := 1.0
	for _, t := range cfg.HighPriorityTypes {
		if t == workflowType {
			boost = cfg.HighPriorityBoost
			break
		}
	}

	timeFactor := math.Min(math.Max(timePercentage, 0)/100, cfg.TimeFactorCap)
	return clamp(repetitiveScore*boost+timeFactor, 0, 1)
}

// OpportunityPriority scores an opportunity in [0,100]. High automation
// potential and low implementation complexity score higher; daily minutes
// saved contribute with square-root damping.
func OpportunityPriority(cfg config.WorkflowConfig, potential, complexity string, dailyMinutesSaved float64) float64 {
	pw, ok := cfg.PotentialWeights[potential]
	if !ok {
		pw = 1
	}
	cw, ok := cfg.ComplexityWeights[complexity]
	if !ok {
		cw = 1
	}
	minutes := math.Sqrt(math.Max(1, dailyMinutesSaved))
	return clamp(pw*cw*minutes*cfg.PriorityScale, 0, 100)
}
