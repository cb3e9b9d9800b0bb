// Package video reads frames from screen-recording files via ffmpeg.
package video

import (
	"context"
	"image"
)

// Metadata describes a probed recording.
type Metadata struct {
	Path            string
	DurationSeconds float64
	NativeFPS       float64
	TotalFrames     int
	Width           int
	Height          int
}

// Source provides random access to decoded frames of one recording.
// Implementations are not safe for concurrent use.
type Source interface {
	Metadata() Metadata
	// ReadFrame decodes the frame nearest to the given timestamp.
	ReadFrame(ctx context.Context, timestampSeconds float64) (image.Image, error)
	Close() error
}
