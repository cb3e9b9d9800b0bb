package model

// ImplementationPriority classifies how urgently an automation program
// should be pursued.
type ImplementationPriority string

const (
	PriorityImmediate ImplementationPriority = "immediate"
	PriorityHigh      ImplementationPriority = "high"
	PriorityMedium    ImplementationPriority = "medium"
	PriorityStrategic ImplementationPriority = "strategic"
	PriorityLow       ImplementationPriority = "low"
	PriorityNone      ImplementationPriority = "none"
)

// TimeSavings aggregates hours saved across all opportunities.
type TimeSavings struct {
	DailyHours       float64 `json:"daily_hours"`
	WeeklyHours      float64 `json:"weekly_hours"`
	MonthlyHours     float64 `json:"monthly_hours"`
	AnnualHours      float64 `json:"annual_hours"`
	PercentOfWorkday float64 `json:"percent_of_workday"`
}

// CostSavings aggregates dollar savings across all opportunities.
type CostSavings struct {
	DailyUSD   float64 `json:"daily_usd"`
	WeeklyUSD  float64 `json:"weekly_usd"`
	MonthlyUSD float64 `json:"monthly_usd"`
	AnnualUSD  float64 `json:"annual_usd"`
	HourlyRate float64 `json:"hourly_rate_used"`
}

// Implementation summarizes the investment side of the ROI calculation.
type Implementation struct {
	TotalCostUSD  float64                `json:"total_cost_usd"`
	PaybackMonths float64                `json:"payback_period_months"`
	ROIPercent    float64                `json:"roi_percent"`
	Priority      ImplementationPriority `json:"priority"`
	WithinBudget  bool                   `json:"within_budget"`
}

// OpportunityROI holds per-opportunity financial metrics after the
// automation-efficiency discount.
type OpportunityROI struct {
	Description       string  `json:"description"`
	DailyMinutesSaved float64 `json:"daily_minutes_saved"`
	AnnualHoursSaved  float64 `json:"annual_hours_saved"`
	AnnualSavingsUSD  float64 `json:"annual_savings_usd"`
	ImplementationUSD float64 `json:"implementation_cost_usd"`
	Complexity        string  `json:"implementation_complexity"`
	Potential         string  `json:"automation_potential"`
	EfficiencyFactor  float64 `json:"efficiency_factor"`
	ROIPercent        float64 `json:"roi_percent"`
	PaybackMonths     float64 `json:"payback_months"`
	Recommendation    string  `json:"recommendation,omitempty"`
}

// ROIResult is fully derived from an opportunity list plus a rate; it has no
// independent lifecycle and is safe to recompute at any time.
type ROIResult struct {
	TimeSavings      TimeSavings      `json:"time_savings"`
	CostSavings      CostSavings      `json:"cost_savings"`
	Implementation   Implementation   `json:"implementation"`
	Opportunities    []OpportunityROI `json:"opportunities"`
	Recommendations  []string         `json:"recommendations"`
	ExecutiveSummary string           `json:"executive_summary"`
}
