package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusAnalyzing  RunStatus = "analyzing"
	RunStatusParsing    RunStatus = "parsing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Recording identifies one screen-recording session to analyze.
type Recording struct {
	ID              string  `json:"id"`
	VideoPath       string  `json:"video_path"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// StepRecord captures the completion of one pipeline stage. Counter fields
// are populated only by the stages that produce them.
type StepRecord struct {
	Step               string    `json:"step"`
	CompletedAt        time.Time `json:"completed_at"`
	FrameCount         int       `json:"frame_count,omitempty"`
	TokensUsed         int64     `json:"tokens_used,omitempty"`
	WorkflowsFound     int       `json:"workflows_found,omitempty"`
	OpportunitiesFound int       `json:"opportunities_found,omitempty"`
}

// Run represents a single analysis invocation for a recording.
type Run struct {
	ID           string            `json:"id"`
	Recording    Recording         `json:"recording"`
	AnalysisType string            `json:"analysis_type"`
	Status       RunStatus         `json:"status"`
	Steps        []StepRecord      `json:"steps,omitempty"`
	Result       *AnalysisEnvelope `json:"result,omitempty"`
	FailedStep   string            `json:"failed_step,omitempty"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
