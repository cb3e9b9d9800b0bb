package model

// ExtractionMode selects a frame-budget preset.
type ExtractionMode string

const (
	ExtractionModeProduction ExtractionMode = "production"
	ExtractionModeTesting    ExtractionMode = "testing"
	ExtractionModeCustom     ExtractionMode = "custom"
)

// ExtractionStrategy is the computed sampling plan for one recording.
// Immutable once computed; created per analysis request.
type ExtractionStrategy struct {
	Method          string         `json:"method"`
	Mode            ExtractionMode `json:"mode"`
	TargetFPS       float64        `json:"target_fps"`
	IntervalSeconds float64        `json:"interval_seconds"`
	TargetFrames    int            `json:"target_frames"`
	MaxFrames       int            `json:"max_frames"`
	SceneDetection  bool           `json:"scene_detection"`
	SceneThreshold  float64        `json:"scene_threshold"`
	DurationSeconds float64        `json:"duration_seconds"`
	EstimatedCost   float64        `json:"estimated_cost_usd"`
}

// Frame is one sampled, JPEG-encoded frame prepared for the vision model.
// Owned exclusively by the pipeline run that created it.
type Frame struct {
	SequenceNumber     int     `json:"sequence_number"`
	FrameIndex         int     `json:"frame_index"`
	TimestampSeconds   float64 `json:"timestamp_seconds"`
	TimestampFormatted string  `json:"timestamp_formatted"`
	ImageBase64        string  `json:"image_base64"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	SizeBytes          int     `json:"size_bytes"`
}

// ExtractionResult holds the sampled frames plus coverage diagnostics.
type ExtractionResult struct {
	Frames         []Frame            `json:"frames"`
	Strategy       ExtractionStrategy `json:"strategy"`
	CandidateCount int                `json:"candidate_count"`
	Degraded       bool               `json:"degraded"`
	Warning        string             `json:"warning,omitempty"`
	CostWarning    string             `json:"cost_warning,omitempty"`
}
