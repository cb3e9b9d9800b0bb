package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsystem-ai/recording-insights/internal/model"
)

func TestDurationFromFrames_Contiguous(t *testing.T) {
	duration, ranges := DurationFromFrames([]int{0, 1, 2, 3})
	assert.Equal(t, 4.0, duration)
	assert.Equal(t, []model.FrameRange{{Start: 0, End: 3}}, ranges)
}

func TestDurationFromFrames_Gaps(t *testing.T) {
	duration, ranges := DurationFromFrames([]int{0, 1, 5, 6, 7, 12})
	assert.Equal(t, 6.0, duration)
	assert.Equal(t, []model.FrameRange{
		{Start: 0, End: 1},
		{Start: 5, End: 7},
		{Start: 12, End: 12},
	}, ranges)
}

func TestDurationFromFrames_DuplicatesAndUnsorted(t *testing.T) {
	duration, ranges := DurationFromFrames([]int{7, 5, 6, 5, 7, 7, 1})
	assert.Equal(t, 4.0, duration)
	assert.Equal(t, []model.FrameRange{
		{Start: 1, End: 1},
		{Start: 5, End: 7},
	}, ranges)
}

func TestDurationFromFrames_Idempotent(t *testing.T) {
	a, _ := DurationFromFrames([]int{3, 3, 3, 1, 1})
	b, _ := DurationFromFrames([]int{1, 3})
	assert.Equal(t, b, a)
}

func TestDurationFromFrames_Empty(t *testing.T) {
	duration, ranges := DurationFromFrames(nil)
	assert.Equal(t, 0.0, duration)
	assert.Nil(t, ranges)
}

func TestDurationFromFrames_SingleFrame(t *testing.T) {
	duration, ranges := DurationFromFrames([]int{42})
	assert.Equal(t, 1.0, duration)
	require.Len(t, ranges, 1)
	assert.Equal(t, model.FrameRange{Start: 42, End: 42}, ranges[0])
}
