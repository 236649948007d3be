package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := NewProgressSampler(10, 0)

	emitted := 0
	for frame := 0; frame <= 200; frame++ {
		if sampler.ShouldLog(frame, 200) {
			emitted++
		}
	}
	// One emit per 10% bucket, inclusive of 0% and 100%.
	if emitted != 11 {
		t.Fatalf("expected 11 bucket emissions, got %d", emitted)
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	sampler := NewProgressSampler(5, 100)

	var frames []int
	for frame := 0; frame < 350; frame++ {
		if sampler.ShouldLog(frame, 0) {
			frames = append(frames, frame)
		}
	}
	want := []int{100, 200, 300}
	if len(frames) != len(want) {
		t.Fatalf("expected %v, got %v", want, frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, frames)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	sampler := NewProgressSampler(5, 0)
	if !sampler.ShouldLog(0, 100) {
		t.Fatal("first frame should log")
	}
	if sampler.ShouldLog(1, 100) {
		t.Fatal("same bucket should not log twice")
	}
	sampler.Reset()
	if !sampler.ShouldLog(0, 100) {
		t.Fatal("after reset the first bucket should log again")
	}
}

func TestNilSamplerAlwaysLogs(t *testing.T) {
	var sampler *ProgressSampler
	if !sampler.ShouldLog(7, 100) {
		t.Fatal("nil sampler should always log")
	}
}
