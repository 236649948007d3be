// Package regions implements the temporal occlusion-region cache. Detection
// is expensive and only runs every N frames; the cache carries detected text
// boxes across the frames in between and decays them gradually once
// detection stops re-observing them, so occlusion neither flickers with
// detection noise nor lingers after text has left the screen.
package regions

import "image"

// Candidate is a detection result offered to the cache: a bounding box in
// frame coordinates plus the detector's confidence in [0,1]. Candidates are
// expected to be pre-filtered and clamped by the detection adapter; the
// cache still drops degenerate boxes defensively rather than erroring.
type Candidate struct {
	Box        image.Rectangle
	Confidence float64
}

// Region is a tracked occlusion target. A region is fresh while detection
// keeps re-observing it and stale while detection misses it; once the miss
// count exceeds the cache's decay limit the region is evicted.
type Region struct {
	Box        image.Rectangle
	Confidence float64

	missCount int
}

// MissCount returns the number of consecutive detection cycles in which the
// region was not re-observed.
func (r Region) MissCount() int {
	return r.missCount
}

// IoU computes intersection-over-union between two rectangles. Degenerate
// rectangles yield 0.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := area(inter)
	union := area(a) + area(b) - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}
