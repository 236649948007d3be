// Package detect wraps the external text-detection capability. The detector
// backend (an EAST DNN by default) is treated as fallible; the Adapter is
// what the pipeline talks to, and it never fails a frame.
package detect

import (
	"context"

	"gocv.io/x/gocv"

	"textmask/internal/regions"
)

// Detector produces raw text-box candidates for a single frame. Candidates
// are in frame coordinates but may be unclamped and carry any confidence;
// filtering is the Adapter's job.
type Detector interface {
	Detect(ctx context.Context, frame gocv.Mat) ([]regions.Candidate, error)
}

// CandidateCache stores raw detector output per frame index so repeat runs
// over the same source skip the expensive DNN pass. Implementations are
// expected to be already bound to a source fingerprint and model identity.
type CandidateCache interface {
	Get(ctx context.Context, frameIdx int) ([]regions.Candidate, bool, error)
	Put(ctx context.Context, frameIdx int, candidates []regions.Candidate) error
}
