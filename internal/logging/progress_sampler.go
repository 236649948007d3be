package logging

// ProgressSampler suppresses repetitive per-frame progress logs while
// preserving signal when completion crosses percent-bucket boundaries.
// When the total frame count is unknown it falls back to a fixed frame
// interval, matching how long videos report progress without a duration.
type ProgressSampler struct {
	bucketSize    float64
	frameInterval int
	lastBucket    int
	lastFrame     int
}

// NewProgressSampler constructs a sampler that emits when progress crosses
// bucket boundaries (default 5%) or, without a known total, every
// frameInterval frames (default 100).
func NewProgressSampler(bucketSize float64, frameInterval int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	if frameInterval <= 0 {
		frameInterval = 100
	}
	return &ProgressSampler{bucketSize: bucketSize, frameInterval: frameInterval, lastBucket: -1}
}

// ShouldLog reports whether progress at the given frame should be logged.
// totalFrames may be zero or negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(frame, totalFrames int) bool {
	if s == nil {
		return true
	}
	if totalFrames <= 0 {
		if frame-s.lastFrame >= s.frameInterval {
			s.lastFrame = frame
			return true
		}
		return false
	}
	percent := float64(frame) / float64(totalFrames) * 100
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		s.lastFrame = frame
		return true
	}
	return false
}

// Reset clears the sampler state when a new run starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
	s.lastFrame = 0
}
