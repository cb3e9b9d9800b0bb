package analysis

import "fmt"

// Prompt variants. Each variant produces a different response schema; the
// parser detects which one it received, so old recordings can be
// re-processed with any prompt family.
const (
	VariantStructured = "structured"
	VariantDiscovery  = "discovery"
	VariantNatural    = "natural"
)

const structuredSystemPrompt = `You are an expert business-process analyst reviewing screen recordings of office work. You identify workflows, repetitive tasks, and automation opportunities from sampled frames.

Respond with JSON only. Use this exact structure:
{
  "workflows_detected": [
    {
      "type": "email_to_wms | data_entry | excel_reporting | data_validation | communication | other",
      "description": "what the worker is doing",
      "applications": ["application names"],
      "steps": ["observed steps in order"],
      "duration_seconds": 0,
      "data_types": ["kinds of data handled"],
      "repetitive_score": 0.0
    }
  ],
  "automation_opportunities": [
    {
      "workflow_type": "matching workflow type",
      "description": "what could be automated",
      "frequency_daily": 0,
      "time_per_occurrence_minutes": 0,
      "automation_potential": "high | medium | low",
      "implementation_complexity": "low | medium | high",
      "recommendation": "suggested approach"
    }
  ],
  "time_analysis": {
    "total_seconds": 0,
    "category_seconds": {"category": 0},
    "productive_percent": 0
  },
  "insights": ["notable observations"],
  "confidence_score": 0.0
}`

const discoverySystemPrompt = `You are an expert business-process analyst. Watch the sampled frames with an open mind: do not force what you see into predefined categories. Describe the workflows you actually observe, however unusual.

Respond with JSON only:
{
  "discovered_workflows": [
    {
      "name": "short workflow name",
      "description": "what is actually happening",
      "applications": ["applications involved"],
      "observed_steps": ["steps in order"],
      "estimated_duration_seconds": 0,
      "repetitive_score": 0.0
    }
  ],
  "automation_opportunities": [
    {
      "task": "task that could be automated",
      "description": "why and how",
      "frequency_daily": 0,
      "time_per_occurrence_minutes": 0,
      "automation_potential": "high | medium | low",
      "implementation_complexity": "low | medium | high"
    }
  ],
  "unique_patterns": ["patterns that do not fit common categories"],
  "confidence_score": 0.0
}`

const naturalSystemPrompt = `You are an expert business-process analyst narrating a screen recording from sampled frames. Frames are numbered in order and sampled one second apart. Describe the work naturally, then structure your observations.

Respond with JSON only:
{
  "natural_description": "a flowing narrative of the session",
  "observed_workflows": [
    {
      "description": "what the worker is doing",
      "applications": ["applications involved"],
      "steps": ["observed steps"],
      "visible_in_frames": [0, 1, 2],
      "repetitive": 0.0
    }
  ],
  "automation_opportunities": [
    {
      "task": "task that could be automated",
      "description": "why it is a good candidate",
      "timeSaved": "e.g. 30 minutes daily",
      "complexity": "simple | moderate | complex"
    }
  ],
  "insights": ["notable observations"],
  "confidence": 0.0
}

List every frame number in which a workflow is visible; frame lists drive the duration calculation.`

// SystemPrompt returns the system prompt for a variant. Unknown variants
// fall back to the natural family.
func SystemPrompt(variant string) string {
	switch variant {
	case VariantStructured:
		return structuredSystemPrompt
	case VariantDiscovery:
		return discoverySystemPrompt
	default:
		return naturalSystemPrompt
	}
}

// UserPrompt returns the per-request user prompt.
func UserPrompt(variant string, frameCount int, durationFormatted string) string {
	base := fmt.Sprintf("These %d frames were sampled in order from a %s screen recording of desktop work. Each frame is labeled with its timestamp.", frameCount, durationFormatted)
	switch variant {
	case VariantStructured:
		return base + " Identify the workflows and automation opportunities and respond with the required JSON."
	case VariantDiscovery:
		return base + " Describe the workflows you actually observe without forcing them into categories, then respond with the required JSON."
	default:
		return base + " Narrate the session, track which frames each workflow appears in, and respond with the required JSON."
	}
}
