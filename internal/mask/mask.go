// Package mask renders occlusion over active regions: either a Gaussian
// blur confined to each box or a solid black fill.
package mask

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"textmask/internal/regions"
)

// Mode selects how regions are hidden.
type Mode string

const (
	ModeBlur  Mode = "blur"
	ModeBlack Mode = "black"
)

// ParseMode validates a mode string.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeBlur:
		return ModeBlur, nil
	case ModeBlack:
		return ModeBlack, nil
	default:
		return "", fmt.Errorf("unsupported mask mode %q (expected blur or black)", value)
	}
}

// Apply occludes every region in the frame in place. Regions are processed
// independently; overlapping boxes simply apply their transform in sequence.
// Out-of-bounds boxes are clamped and a box that clamps to zero area is a
// no-op, never an error.
func Apply(frame *gocv.Mat, regs []regions.Region, mode Mode) {
	if frame == nil || frame.Empty() {
		return
	}
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	for _, region := range regs {
		box := region.Box.Intersect(bounds)
		if box.Dx() <= 0 || box.Dy() <= 0 {
			continue
		}
		switch mode {
		case ModeBlack:
			gocv.Rectangle(frame, box, color.RGBA{}, -1)
		default:
			blurRegion(frame, box)
		}
	}
}

func blurRegion(frame *gocv.Mat, box image.Rectangle) {
	roi := frame.Region(box)
	defer roi.Close()
	k := kernelSize(box.Dx())
	gocv.GaussianBlur(roi, &roi, image.Pt(k, k), 0, 0, gocv.BorderDefault)
}

// kernelSize picks a blur kernel proportional to box width so wide subtitle
// bars smear enough to be unreadable. Kernel must be odd and at least 15.
func kernelSize(width int) int {
	k := width / 3
	if k < 15 {
		k = 15
	}
	if k%2 == 0 {
		k++
	}
	return k
}
