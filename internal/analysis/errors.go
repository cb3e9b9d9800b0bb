package analysis

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/newsystem-ai/recording-insights/internal/resilience"
)

// ErrContextOverflow is returned when a request cannot fit the model's
// context window. Never retried; the caller must reduce the frame count.
var ErrContextOverflow = eris.New("analysis: request exceeds model context budget")

// overflowPatterns match the API's context-length rejections.
var overflowPatterns = []string{
	"context_length",
	"prompt is too long",
	"too many total text bytes",
}

// invalidPatterns match malformed-request rejections. The frames or prompt
// are wrong; retrying the same payload cannot succeed.
var invalidPatterns = []string{
	"invalid_request",
	"authentication_error",
	"permission_error",
	"could not process image",
}

// isContextOverflow reports whether the error is a context-length rejection.
func isContextOverflow(err error) bool {
	if err == nil {
		return false
	}
	if eris.Is(err, ErrContextOverflow) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range overflowPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// shouldRetry classifies a model-call failure. Rate limits, overloads, and
// network failures retry; malformed requests and context overflows do not.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if isContextOverflow(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range invalidPatterns {
		if strings.Contains(msg, p) {
			return false
		}
	}
	return resilience.IsTransient(err)
}
