package regions

import "sort"

// Options controls matching and decay behavior.
type Options struct {
	// OverlapThreshold is the minimum IoU for a candidate to refresh an
	// existing region instead of creating a new one.
	OverlapThreshold float64
	// DecayLimit is the number of consecutive missed detection cycles a
	// region survives. A region is evicted once its miss count exceeds the
	// limit, so DecayLimit=0 evicts on the first missed cycle.
	DecayLimit int
}

const (
	defaultOverlapThreshold = 0.05
	defaultDecayLimit       = 2
)

// Cache holds the currently active occlusion regions. It is exclusively
// owned by the pipeline driver's single thread of control: Update runs on
// detection cycles only, Active is read every frame.
type Cache struct {
	opts    Options
	regions []Region
}

// NewCache constructs a cache. Out-of-range options fall back to defaults.
func NewCache(opts Options) *Cache {
	if opts.OverlapThreshold <= 0 || opts.OverlapThreshold > 1 {
		opts.OverlapThreshold = defaultOverlapThreshold
	}
	if opts.DecayLimit < 0 {
		opts.DecayLimit = defaultDecayLimit
	}
	return &Cache{opts: opts}
}

// Update merges one detection cycle's candidates into the active set.
//
// Candidates are matched greedily one-to-one against existing regions by
// bounding-box overlap: a match refreshes the region's box and confidence
// and resets its miss count; every region left unmatched ages by one cycle;
// every candidate left unmatched becomes a new region. Regions whose miss
// count exceeds the decay limit are evicted.
//
// Matching order is deterministic: candidates are processed by confidence
// descending (ties broken by box position), and each candidate claims the
// earliest-inserted region with the highest overlap. Degenerate candidate
// boxes are dropped, never reported as errors.
func (c *Cache) Update(candidates []Candidate) {
	ordered := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Box.Dx() <= 0 || cand.Box.Dy() <= 0 {
			continue
		}
		ordered = append(ordered, cand)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Box.Min.Y != b.Box.Min.Y {
			return a.Box.Min.Y < b.Box.Min.Y
		}
		return a.Box.Min.X < b.Box.Min.X
	})

	matched := make([]bool, len(c.regions))
	for _, cand := range ordered {
		best := -1
		bestIoU := 0.0
		for i := range c.regions {
			if matched[i] {
				continue
			}
			overlap := IoU(c.regions[i].Box, cand.Box)
			if overlap < c.opts.OverlapThreshold {
				continue
			}
			if overlap > bestIoU {
				best = i
				bestIoU = overlap
			}
		}
		if best >= 0 {
			matched[best] = true
			c.regions[best].Box = cand.Box
			c.regions[best].Confidence = cand.Confidence
			c.regions[best].missCount = 0
			continue
		}
		c.regions = append(c.regions, Region{Box: cand.Box, Confidence: cand.Confidence})
		matched = append(matched, true)
	}

	survivors := c.regions[:0]
	for i := range c.regions {
		if !matched[i] {
			c.regions[i].missCount++
		}
		if c.regions[i].missCount > c.opts.DecayLimit {
			continue
		}
		survivors = append(survivors, c.regions[i])
	}
	c.regions = survivors
}

// Active returns a copy of the current region set. It is called every frame,
// including frames without a detection cycle; that is what makes boxes stick
// between cycles and fade out over the decay window instead of vanishing the
// moment one cycle misses them.
func (c *Cache) Active() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Len returns the number of active regions.
func (c *Cache) Len() int {
	return len(c.regions)
}
