package model

// ResponseFormat identifies which historical model-response schema a payload
// was parsed from.
type ResponseFormat string

const (
	FormatStructured ResponseFormat = "structured"
	FormatDiscovery  ResponseFormat = "discovery"
	FormatNatural    ResponseFormat = "natural"
	FormatRaw        ResponseFormat = "raw"
)

// FrameRange is a maximal contiguous run of frame indices, inclusive.
type FrameRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Workflow is one distinct workflow detected in a recording.
// PriorityScore is derived by the normalizer, never model-supplied.
type Workflow struct {
	Type            string       `json:"type"`
	Description     string       `json:"description"`
	Applications    []string     `json:"applications"`
	Steps           []string     `json:"steps"`
	DurationSeconds float64      `json:"duration_seconds"`
	DataTypes       []string     `json:"data_types"`
	RepetitiveScore float64      `json:"repetitive_score"`
	PriorityScore   float64      `json:"priority_score"`
	FrameRanges     []FrameRange `json:"frame_ranges,omitempty"`
}

// AutomationOpportunity is one candidate task for automation with its
// normalized time-savings claims.
type AutomationOpportunity struct {
	WorkflowType             string  `json:"workflow_type"`
	Description              string  `json:"description"`
	FrequencyDaily           float64 `json:"frequency_daily"`
	TimePerOccurrenceMinutes float64 `json:"time_per_occurrence_minutes"`
	TimeSavedDailyMinutes    float64 `json:"time_saved_daily_minutes"`
	TimeSavedWeeklyHours     float64 `json:"time_saved_weekly_hours"`
	TimeSavedAnnualHours     float64 `json:"time_saved_annual_hours"`
	CostSavedAnnualUSD       float64 `json:"cost_saved_annual_usd"`
	AutomationPotential      string  `json:"automation_potential"`      // high | medium | low
	ImplementationComplexity string  `json:"implementation_complexity"` // low | medium | high
	Recommendation           string  `json:"recommendation,omitempty"`
	PriorityScore            float64 `json:"priority_score"`
}

// TimeAnalysis breaks down where recorded time was spent.
type TimeAnalysis struct {
	TotalSeconds        float64            `json:"total_seconds"`
	CategorySeconds     map[string]float64 `json:"category_seconds,omitempty"`
	OtherSeconds        float64            `json:"other_seconds"`
	ProductivePercent   float64            `json:"productive_percent"`
	ApplicationsUsed    int                `json:"applications_used,omitempty"`
	RepetitionsObserved int                `json:"repetitions_observed,omitempty"`
}

// Summary aggregates headline metrics over a normalized result.
type Summary struct {
	TotalWorkflows            int     `json:"total_workflows"`
	TotalOpportunities        int     `json:"total_opportunities"`
	HighPriorityOpportunities int     `json:"high_priority_opportunities"`
	TimeSavingsDailyMinutes   float64 `json:"time_savings_daily_minutes"`
	TimeSavingsWeeklyHours    float64 `json:"time_savings_weekly_hours"`
	CostSavingsAnnualUSD      float64 `json:"cost_savings_annual_usd"`
	HighestImpactOpportunity  string  `json:"highest_impact_opportunity,omitempty"`
	ROIMultiplier             float64 `json:"roi_multiplier"`
}

// SkippedItem records one list entry the normalizer could not parse.
// Partial success is first-class: parsed items and skips travel together.
type SkippedItem struct {
	Kind   string `json:"kind"` // "workflow" | "opportunity" | "insight"
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// NormalizedResult is the canonical representation all response formats
// converge to.
type NormalizedResult struct {
	Format        ResponseFormat          `json:"format"`
	Workflows     []Workflow              `json:"workflows"`
	Opportunities []AutomationOpportunity `json:"opportunities"`
	Insights      []string                `json:"insights"`
	TimeAnalysis  TimeAnalysis            `json:"time_analysis"`
	Summary       Summary                 `json:"summary"`
	Confidence    float64                 `json:"confidence"`
	Skipped       []SkippedItem           `json:"skipped,omitempty"`
}
