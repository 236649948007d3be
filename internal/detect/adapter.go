package detect

import (
	"context"
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"textmask/internal/logging"
	"textmask/internal/regions"
)

// AdapterOptions configures candidate filtering.
type AdapterOptions struct {
	// ConfThresh drops candidates with confidence strictly below it.
	ConfThresh float64
	// MinBoxWidth/MinBoxHeight drop boxes too small to be real text.
	MinBoxWidth  int
	MinBoxHeight int
}

// Adapter sits between the pipeline and a Detector backend. It filters and
// clamps raw candidates, consults the optional per-frame candidate cache,
// and degrades a backend failure to "no detections this cycle" instead of
// propagating it. The pipeline never sees an error from it.
type Adapter struct {
	detector Detector
	cache    CandidateCache
	opts     AdapterOptions
	logger   *slog.Logger
}

// NewAdapter constructs an adapter around the given backend. cache may be
// nil to disable candidate caching.
func NewAdapter(detector Detector, cache CandidateCache, opts AdapterOptions, logger *slog.Logger) *Adapter {
	return &Adapter{
		detector: detector,
		cache:    cache,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "detect"),
	}
}

// Detect returns the filtered candidate set for one detection cycle.
func (a *Adapter) Detect(ctx context.Context, frame gocv.Mat, frameIdx int) []regions.Candidate {
	raw, cached := a.cachedCandidates(ctx, frameIdx)
	if !cached {
		var err error
		raw, err = a.detector.Detect(ctx, frame)
		if err != nil {
			// One failed cycle degrades to zero candidates; existing
			// regions keep decaying normally.
			a.logger.Warn("detection cycle failed, continuing without new candidates",
				logging.String(logging.FieldEventType, "detection_failed"),
				logging.Int(logging.FieldFrame, frameIdx),
				logging.Error(err),
			)
			return nil
		}
		if a.cache != nil {
			if err := a.cache.Put(ctx, frameIdx, raw); err != nil {
				a.logger.Debug("detection cache write failed",
					logging.Int(logging.FieldFrame, frameIdx),
					logging.Error(err),
				)
			}
		}
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	return filterCandidates(raw, bounds, a.opts)
}

func (a *Adapter) cachedCandidates(ctx context.Context, frameIdx int) ([]regions.Candidate, bool) {
	if a.cache == nil {
		return nil, false
	}
	raw, ok, err := a.cache.Get(ctx, frameIdx)
	if err != nil {
		a.logger.Debug("detection cache read failed",
			logging.Int(logging.FieldFrame, frameIdx),
			logging.Error(err),
		)
		return nil, false
	}
	return raw, ok
}

// filterCandidates applies the confidence threshold, clamps boxes to frame
// bounds, and discards boxes below the minimum size. Malformed boxes are
// dropped silently; they are detection noise, not errors.
func filterCandidates(raw []regions.Candidate, bounds image.Rectangle, opts AdapterOptions) []regions.Candidate {
	out := make([]regions.Candidate, 0, len(raw))
	for _, cand := range raw {
		if cand.Confidence < opts.ConfThresh {
			continue
		}
		clamped := cand.Box.Intersect(bounds)
		if clamped.Dx() < max(opts.MinBoxWidth, 1) || clamped.Dy() < max(opts.MinBoxHeight, 1) {
			continue
		}
		cand.Box = clamped
		out = append(out, cand)
	}
	return out
}
