// Package roi converts normalized automation opportunities into comparable
// financial figures. All calculations are pure functions of the opportunity
// list plus the configured rate assumptions, so results can be recomputed
// whenever the assumptions change.
package roi

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/newsystem-ai/recording-insights/internal/config"
	"github.com/newsystem-ai/recording-insights/internal/model"
)

// Calculator derives ROI metrics under a fixed set of rate assumptions.
type Calculator struct {
	cfg     config.ROIConfig
	printer *message.Printer
}

// NewCalculator creates a Calculator from the configured assumptions.
func NewCalculator(cfg config.ROIConfig) *Calculator {
	return &Calculator{
		cfg:     cfg,
		printer: message.NewPrinter(language.English),
	}
}

// Compute derives the full financial picture for an opportunity list.
// hourlyRate overrides the configured rate when positive. budgetUSD caps the
// recommended program when positive; zero means unconstrained. An empty list
// yields an all-zero result, never an error.
func (c *Calculator) Compute(opportunities []model.AutomationOpportunity, hourlyRate, budgetUSD float64) *model.ROIResult {
	rate := hourlyRate
	if rate <= 0 {
		rate = c.cfg.HourlyRate
	}

	result := &model.ROIResult{
		CostSavings: model.CostSavings{HourlyRate: rate},
	}
	if len(opportunities) == 0 {
		result.Implementation.Priority = model.PriorityNone
		result.Implementation.WithinBudget = true
		result.ExecutiveSummary = "No automation opportunities were identified in this recording. " +
			"A longer or more representative capture may surface repetitive work worth automating."
		return result
	}

	var (
		dailyMinutes float64
		annualHours  float64
		totalCost    float64
	)
	perOpp := make([]model.OpportunityROI, 0, len(opportunities))
	for _, op := range opportunities {
		item := c.computeOpportunity(op, rate)
		dailyMinutes += item.DailyMinutesSaved
		annualHours += item.AnnualHoursSaved
		totalCost += item.ImplementationUSD
		perOpp = append(perOpp, item)
	}
	sort.SliceStable(perOpp, func(i, j int) bool {
		return perOpp[i].ROIPercent > perOpp[j].ROIPercent
	})
	result.Opportunities = perOpp

	dailyHours := dailyMinutes / 60
	result.TimeSavings = model.TimeSavings{
		DailyHours:   dailyHours,
		WeeklyHours:  dailyHours * 5,
		MonthlyHours: annualHours / 12,
		AnnualHours:  annualHours,
	}
	if c.cfg.WorkingHoursPerDay > 0 {
		result.TimeSavings.PercentOfWorkday = dailyHours / c.cfg.WorkingHoursPerDay * 100
	}

	annualSavings := annualHours * rate
	result.CostSavings = model.CostSavings{
		DailyUSD:   dailyHours * rate,
		WeeklyUSD:  dailyHours * 5 * rate,
		MonthlyUSD: annualSavings / 12,
		AnnualUSD:  annualSavings,
		HourlyRate: rate,
	}

	impl := model.Implementation{
		TotalCostUSD: totalCost,
		WithinBudget: budgetUSD <= 0 || totalCost <= budgetUSD,
	}
	impl.PaybackMonths = paybackMonths(totalCost, annualSavings)
	if totalCost > 0 {
		impl.ROIPercent = (annualSavings - totalCost) / totalCost * 100
	}
	impl.Priority = c.classify(annualSavings, totalCost, impl.PaybackMonths)
	result.Implementation = impl

	result.Recommendations = c.recommend(perOpp, annualSavings, budgetUSD)
	result.ExecutiveSummary = c.executiveSummary(result, annualSavings, totalCost)

	return result
}

// computeOpportunity applies the efficiency discount and cost tier to one
// opportunity. Automation is never fully effective, so the claimed minutes
// are scaled down before pricing.
func (c *Calculator) computeOpportunity(op model.AutomationOpportunity, rate float64) model.OpportunityROI {
	efficiency := tierValue(c.cfg.EfficiencyFactors, op.AutomationPotential, 0.75)
	cost := tierValue(c.cfg.ImplementationCosts, op.ImplementationComplexity, 15000)

	actualMinutes := op.TimeSavedDailyMinutes * efficiency
	annualHours := actualMinutes / 60 * c.cfg.WorkingDaysPerYear
	annualSavings := annualHours * rate

	item := model.OpportunityROI{
		Description:       op.Description,
		DailyMinutesSaved: actualMinutes,
		AnnualHoursSaved:  annualHours,
		AnnualSavingsUSD:  annualSavings,
		ImplementationUSD: cost,
		Complexity:        op.ImplementationComplexity,
		Potential:         op.AutomationPotential,
		EfficiencyFactor:  efficiency,
		Recommendation:    op.Recommendation,
	}
	if cost > 0 {
		item.ROIPercent = (annualSavings - cost) / cost * 100
	}
	item.PaybackMonths = paybackMonths(cost, annualSavings)
	return item
}

// classify assigns the aggregate implementation priority. Checks run from
// most to least urgent; the strategic bucket catches slow-payback programs
// whose savings still dwarf their cost.
func (c *Calculator) classify(annualSavings, totalCost, payback float64) model.ImplementationPriority {
	switch {
	case annualSavings <= 0:
		return model.PriorityNone
	case payback <= c.cfg.QuickWinMonths:
		return model.PriorityImmediate
	case payback <= 6 && annualSavings > c.cfg.HighValueSavings:
		return model.PriorityHigh
	case payback <= 12:
		return model.PriorityMedium
	case annualSavings > 2*totalCost:
		return model.PriorityStrategic
	default:
		return model.PriorityLow
	}
}

// paybackMonths reports 0 when the savings cannot recover the cost.
func paybackMonths(cost, annualSavings float64) float64 {
	if annualSavings <= 0 {
		return 0
	}
	return cost / (annualSavings / 12)
}

// tierValue looks up a high/medium/low table, falling back when the level is
// outside the canonical vocabulary.
func tierValue(table map[string]float64, level string, fallback float64) float64 {
	if v, ok := table[level]; ok {
		return v
	}
	return fallback
}

func (c *Calculator) executiveSummary(r *model.ROIResult, annualSavings, totalCost float64) string {
	fteHours := c.cfg.WorkingDaysPerYear * c.cfg.WorkingHoursPerDay
	var fte float64
	if fteHours > 0 {
		fte = r.TimeSavings.AnnualHours / fteHours
	}
	return c.printer.Sprintf(
		"Automating the %d identified opportunities would save %.0f hours per year "+
			"(%.2f FTE equivalent), worth $%.0f annually against an estimated $%.0f "+
			"implementation cost. Payback period: %.1f months. Priority: %s.",
		len(r.Opportunities), r.TimeSavings.AnnualHours, fte,
		annualSavings, totalCost, r.Implementation.PaybackMonths,
		string(r.Implementation.Priority),
	)
}
