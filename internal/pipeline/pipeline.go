// Package pipeline drives the per-frame processing loop: scheduled
// detection cycles, region-cache updates, masking, and output writing, in
// strict frame order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"textmask/internal/logging"
	"textmask/internal/mask"
	"textmask/internal/regions"
)

// FrameSource decodes frames in order. Read returns false at end of stream.
type FrameSource interface {
	Read(dst *gocv.Mat) bool
}

// FrameSink receives processed frames in order.
type FrameSink interface {
	Write(frame gocv.Mat) error
}

// DetectionAdapter produces the filtered candidate set for a detection
// cycle. It never fails; a backend failure surfaces as zero candidates.
type DetectionAdapter interface {
	Detect(ctx context.Context, frame gocv.Mat, frameIdx int) []regions.Candidate
}

// Stats summarizes a completed run.
type Stats struct {
	Frames          int
	DetectionCycles int
	PeakRegions     int
}

// Driver owns the sequential frame loop. One frame is read, possibly
// detected on, masked, and written before the next frame is read; the
// region cache is only ever touched from this single thread of control.
type Driver struct {
	Source      FrameSource
	Sink        FrameSink
	Adapter     DetectionAdapter
	Cache       *regions.Cache
	Mode        mask.Mode
	DetectEvery int
	// TotalFrames is a progress hint; zero means unknown.
	TotalFrames int
	Logger      *slog.Logger
}

// Run processes every frame until end of stream. It returns an error only
// for write failures and cancellation; detection trouble degrades inside
// the adapter.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	logger := logging.NewComponentLogger(d.Logger, "pipeline")
	sampler := logging.NewProgressSampler(5, 100)
	detectEvery := d.DetectEvery
	if detectEvery < 1 {
		detectEvery = 1
	}

	var stats Stats
	frame := gocv.NewMat()
	defer frame.Close()

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !d.Source.Read(&frame) {
			break
		}

		if idx%detectEvery == 0 {
			candidates := d.Adapter.Detect(ctx, frame, idx)
			d.Cache.Update(candidates)
			stats.DetectionCycles++
			logger.Debug("detection cycle",
				logging.Int(logging.FieldFrame, idx),
				logging.Int("candidates", len(candidates)),
				logging.Int(logging.FieldRegions, d.Cache.Len()),
			)
		}

		active := d.Cache.Active()
		if len(active) > stats.PeakRegions {
			stats.PeakRegions = len(active)
		}
		mask.Apply(&frame, active, d.Mode)

		if err := d.Sink.Write(frame); err != nil {
			return stats, fmt.Errorf("write frame %d: %w", idx, err)
		}
		stats.Frames++

		if sampler.ShouldLog(idx, d.TotalFrames) {
			logger.Info("processing",
				logging.Int(logging.FieldFrame, idx),
				logging.Int("total_frames", d.TotalFrames),
				logging.Int(logging.FieldRegions, len(active)),
			)
		}
	}

	return stats, nil
}
