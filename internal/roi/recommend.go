package roi

import (
	"strings"

	"github.com/newsystem-ai/recording-insights/internal/model"
)

// recommend builds the ranked recommendation list from opportunities already
// sorted ROI-descending. Output is deterministic for a given input and is
// capped at the configured maximum.
func (c *Calculator) recommend(sorted []model.OpportunityROI, annualSavings, budgetUSD float64) []string {
	max := c.cfg.MaxRecommendations
	if max <= 0 {
		max = 4
	}

	var recs []string

	if quick := quickWins(sorted, c.cfg.QuickWinMonths); len(quick) > 0 {
		recs = append(recs, c.printer.Sprintf(
			"Start with %d quick win(s) that pay back within %.0f months: %s.",
			len(quick), c.cfg.QuickWinMonths, strings.Join(quick, "; "),
		))
	}

	if len(sorted) > 0 && sorted[0].AnnualSavingsUSD > 0 {
		top := sorted[0]
		recs = append(recs, c.printer.Sprintf(
			"Highest return: %q saves $%.0f per year against a $%.0f build.",
			top.Description, top.AnnualSavingsUSD, top.ImplementationUSD,
		))
	}

	if budgetUSD > 0 {
		if subset, subCost, subSavings := withinBudget(sorted, budgetUSD); len(subset) > 0 {
			recs = append(recs, c.printer.Sprintf(
				"Within the $%.0f budget, %d opportunity(ies) fit for $%.0f total, saving $%.0f per year.",
				budgetUSD, len(subset), subCost, subSavings,
			))
		}
	}

	if annualSavings > c.cfg.PhasedProgramFloor {
		recs = append(recs, c.printer.Sprintf(
			"Total savings of $%.0f per year justify a phased automation program rather than one-off fixes.",
			annualSavings,
		))
	}

	if len(recs) > max {
		recs = recs[:max]
	}
	return recs
}

// quickWins lists descriptions of opportunities whose payback beats the
// quick-win threshold, preserving ROI order.
func quickWins(sorted []model.OpportunityROI, months float64) []string {
	var out []string
	for _, op := range sorted {
		if op.AnnualSavingsUSD > 0 && op.PaybackMonths <= months {
			out = append(out, op.Description)
		}
	}
	return out
}

// withinBudget greedily admits opportunities in ROI order while the running
// cost stays inside the budget.
func withinBudget(sorted []model.OpportunityROI, budget float64) (subset []model.OpportunityROI, cost, savings float64) {
	for _, op := range sorted {
		if cost+op.ImplementationUSD > budget {
			continue
		}
		cost += op.ImplementationUSD
		savings += op.AnnualSavingsUSD
		subset = append(subset, op)
	}
	return subset, cost, savings
}
