package parser

import (
	"sort"

	"github.com/newsystem-ai/recording-insights/internal/model"
)

// DurationFromFrames reconstructs elapsed time from a frame-membership
// list. Frames are sampled one second apart by convention, so the duration
// is the count of distinct frames. Duplicate and unsorted input is
// tolerated; an empty list means zero duration, not an error. The maximal
// contiguous sub-ranges are returned for diagnostics and visualization.
func DurationFromFrames(frames []int) (float64, []model.FrameRange) {
	if len(frames) == 0 {
		return 0, nil
	}

	seen := make(map[int]struct{}, len(frames))
	unique := make([]int, 0, len(frames))
	for _, f := range frames {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}
	sort.Ints(unique)

	ranges := []model.FrameRange{{Start: unique[0], End: unique[0]}}
	for _, f := range unique[1:] {
		last := &ranges[len(ranges)-1]
		if f == last.End+1 {
			last.End = f
		} else {
			ranges = append(ranges, model.FrameRange{Start: f, End: f})
		}
	}

	return float64(len(unique)), ranges
}
