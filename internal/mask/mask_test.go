package mask

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"textmask/internal/regions"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"blur", ModeBlur, false},
		{"black", ModeBlack, false},
		{" Black ", ModeBlack, false},
		{"BLUR", ModeBlur, false},
		{"pixelate", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseMode(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestKernelSize(t *testing.T) {
	cases := []struct {
		width int
		want  int
	}{
		{10, 15},   // floor
		{45, 15},   // 45/3 = 15, already odd
		{60, 21},   // 60/3 = 20, bumped to odd
		{300, 101}, // 300/3 = 100, bumped to odd
	}
	for _, tc := range cases {
		if got := kernelSize(tc.width); got != tc.want {
			t.Fatalf("kernelSize(%d) = %d, want %d", tc.width, got, tc.want)
		}
	}
	for w := 1; w < 500; w++ {
		k := kernelSize(w)
		if k%2 == 0 || k < 15 {
			t.Fatalf("kernelSize(%d) = %d, must be odd and >= 15", w, k)
		}
	}
}

func grayFrame(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func TestBlackFillsRegion(t *testing.T) {
	frame := grayFrame(t, 100, 200)
	Apply(&frame, []regions.Region{{Box: image.Rect(20, 30, 80, 60)}}, ModeBlack)

	inside := frame.GetVecbAt(40, 50)
	if inside[0] != 0 || inside[1] != 0 || inside[2] != 0 {
		t.Fatalf("pixel inside region not blacked out: %v", inside)
	}
	outside := frame.GetVecbAt(10, 10)
	if outside[0] != 128 {
		t.Fatalf("pixel outside region modified: %v", outside)
	}
}

func TestBlackIsIdempotent(t *testing.T) {
	regs := []regions.Region{{Box: image.Rect(0, 0, 50, 50)}}

	once := grayFrame(t, 100, 100)
	Apply(&once, regs, ModeBlack)

	twice := grayFrame(t, 100, 100)
	Apply(&twice, regs, ModeBlack)
	Apply(&twice, regs, ModeBlack)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(once, twice, &diff)
	if gocv.CountNonZero(diff.Reshape(1, 1)) != 0 {
		t.Fatal("applying black twice must equal applying it once")
	}
}

func TestOutOfBoundsBoxIsClamped(t *testing.T) {
	frame := grayFrame(t, 100, 100)
	Apply(&frame, []regions.Region{{Box: image.Rect(80, 80, 300, 300)}}, ModeBlack)

	if px := frame.GetVecbAt(90, 90); px[0] != 0 {
		t.Fatalf("clamped region should still be filled: %v", px)
	}
	if px := frame.GetVecbAt(50, 50); px[0] != 128 {
		t.Fatalf("pixel outside clamped region modified: %v", px)
	}
}

func TestDegenerateBoxIsNoOp(t *testing.T) {
	frame := grayFrame(t, 100, 100)
	Apply(&frame, []regions.Region{
		{Box: image.Rect(500, 500, 600, 600)}, // fully outside
		{Box: image.Rectangle{}},              // empty
	}, ModeBlack)

	diff := gocv.NewMat()
	defer diff.Close()
	reference := grayFrame(t, 100, 100)
	gocv.AbsDiff(frame, reference, &diff)
	if gocv.CountNonZero(diff.Reshape(1, 1)) != 0 {
		t.Fatal("degenerate boxes must not touch the frame")
	}
}

func TestBlurChangesOnlyRegion(t *testing.T) {
	frame := grayFrame(t, 100, 200)
	// A blur over a uniform frame is a no-op, so paint contrast inside the
	// region first.
	gocv.Rectangle(&frame, image.Rect(30, 30, 40, 40), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	Apply(&frame, []regions.Region{{Box: image.Rect(20, 20, 80, 60)}}, ModeBlur)

	// The hard edge of the painted square must have smeared.
	edge := frame.GetVecbAt(35, 41)
	if edge[0] == 128 {
		t.Fatalf("expected blur to bleed past the painted square, got %v", edge)
	}
	// Pixels far outside the region stay untouched.
	if px := frame.GetVecbAt(90, 190); px[0] != 128 {
		t.Fatalf("pixel outside blur region modified: %v", px)
	}
}
