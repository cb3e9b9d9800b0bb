package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultDailyMinutes is assumed when a time-savings claim cannot be
// parsed at all.
const defaultDailyMinutes = 30

var (
	minutesRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:minutes?|mins?)\b`)
	hoursRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
)

// ParseDailyMinutes extracts daily minutes saved from free-text claims
// like "30 minutes daily", "2 hours per day", or "45 min". Unparseable
// input falls back to a conservative default.
func ParseDailyMinutes(s string) float64 {
	lowered := strings.ToLower(s)

	if m := minutesRe.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	if m := hoursRe.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v * 60
		}
	}
	return defaultDailyMinutes
}

// complexityToLevel maps the natural format's complexity vocabulary to the
// canonical implementation-complexity levels.
func complexityToLevel(complexity string) string {
	switch strings.ToLower(strings.TrimSpace(complexity)) {
	case "simple", "low", "easy":
		return "low"
	case "complex", "high", "hard":
		return "high"
	default:
		return "medium"
	}
}

// complexityToPotential infers automation potential from implementation
// complexity: simple tasks are the most automatable.
func complexityToPotential(complexity string) string {
	switch complexityToLevel(complexity) {
	case "low":
		return "high"
	case "high":
		return "low"
	default:
		return "medium"
	}
}
