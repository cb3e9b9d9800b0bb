package model

// FrameStats describes the extraction stage in the final envelope.
type FrameStats struct {
	FramesAnalyzed int                `json:"frames_analyzed"`
	Strategy       ExtractionStrategy `json:"extraction_strategy"`
	Degraded       bool               `json:"degraded,omitempty"`
	Warning        string             `json:"warning,omitempty"`
}

// AnalysisEnvelope is the complete result of one pipeline run. The caller
// receives either a success envelope or a structured failure envelope,
// never a raw error.
type AnalysisEnvelope struct {
	Success           bool                    `json:"success"`
	RunID             string                  `json:"run_id"`
	AnalysisType      string                  `json:"analysis_type"`
	ProcessingSeconds float64                 `json:"processing_time_seconds"`
	Frames            FrameStats              `json:"frame_analysis"`
	Workflows         []Workflow              `json:"workflows"`
	Opportunities     []AutomationOpportunity `json:"automation_opportunities"`
	Insights          []string                `json:"insights,omitempty"`
	TimeAnalysis      TimeAnalysis            `json:"time_analysis"`
	Summary           Summary                 `json:"summary"`
	Confidence        float64                 `json:"confidence_score"`
	ROI               *ROIResult              `json:"roi,omitempty"`
	TokensUsed        int64                   `json:"tokens_used"`
	EstimatedCostUSD  float64                 `json:"estimated_cost_usd"`
	FailedStep        string                  `json:"failed_step,omitempty"`
	Error             string                  `json:"error,omitempty"`
}
