package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080, AvgFrameRate: "30000/1001"},
			{CodecType: "audio", Channels: 2},
			{CodecType: "audio", Channels: 6},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if !result.HasAudio() {
		t.Fatal("expected audio to be reported")
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	video, ok := result.FirstVideoStream()
	if !ok || video.Width != 1920 {
		t.Fatalf("unexpected first video stream: %+v ok=%v", video, ok)
	}
}

func TestHasAudioFalseForVideoOnly(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "video"}}}
	if result.HasAudio() {
		t.Fatal("video-only container should not report audio")
	}
}

func TestFrameRateParsing(t *testing.T) {
	cases := []struct {
		name   string
		stream Stream
		want   float64
	}{
		{"ntsc rational", Stream{AvgFrameRate: "30000/1001"}, 30000.0 / 1001.0},
		{"plain integer", Stream{AvgFrameRate: "25"}, 25},
		{"falls back to r_frame_rate", Stream{AvgFrameRate: "0/0", RFrameRate: "24/1"}, 24},
		{"unavailable", Stream{AvgFrameRate: "0/0"}, 0},
		{"garbage", Stream{AvgFrameRate: "abc"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stream.FrameRate(); got != tc.want {
				t.Fatalf("FrameRate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDurationSecondsInvalid(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected 0 for invalid duration, got %v", result.DurationSeconds())
	}
}
