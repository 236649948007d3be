package remux

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"textmask/internal/logging"
	"textmask/internal/media/ffprobe"
	"textmask/internal/services"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func audioResult() ffprobe.Result {
	return ffprobe.Result{Streams: []ffprobe.Stream{
		{CodecType: "video", CodecName: "h264"},
		{CodecType: "audio", CodecName: "aac"},
	}}
}

func videoOnlyResult() ffprobe.Result {
	return ffprobe.Result{Streams: []ffprobe.Stream{
		{CodecType: "video", CodecName: "h264"},
	}}
}

func newTestRemuxer() *Remuxer {
	return New("ffmpeg", "ffprobe", logging.NewNop())
}

func TestRemuxAttachesAudio(t *testing.T) {
	dir := t.TempDir()
	intermediate := writeTempFile(t, dir, "clip_video_only.mp4", "silent")
	original := writeTempFile(t, dir, "clip.mp4", "original")
	final := filepath.Join(dir, "out.mp4")

	var gotArgs []string
	r := newTestRemuxer()
	r.probe = func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return audioResult(), nil
	}
	r.runCommand = func(_ context.Context, name string, args ...string) error {
		gotArgs = append([]string{name}, args...)
		return os.WriteFile(final, []byte("muxed"), 0o644)
	}

	result, err := r.Remux(context.Background(), intermediate, original, final)
	if err != nil {
		t.Fatalf("Remux: %v", err)
	}
	if !result.AudioAttached {
		t.Fatal("expected audio to be attached")
	}
	if _, err := os.Stat(intermediate); !os.IsNotExist(err) {
		t.Fatal("expected intermediate file to be removed")
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-map 0:v:0", "-map 1:a?", "-c:v copy", "-c:a copy"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args missing %q: %v", want, gotArgs)
		}
	}
}

func TestRemuxPromotesWhenSourceHasNoAudio(t *testing.T) {
	dir := t.TempDir()
	intermediate := writeTempFile(t, dir, "clip_video_only.mp4", "silent")
	original := writeTempFile(t, dir, "clip.mp4", "original")
	final := filepath.Join(dir, "out.mp4")

	ffmpegCalled := false
	r := newTestRemuxer()
	r.probe = func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return videoOnlyResult(), nil
	}
	r.runCommand = func(_ context.Context, _ string, _ ...string) error {
		ffmpegCalled = true
		return nil
	}

	result, err := r.Remux(context.Background(), intermediate, original, final)
	if err != nil {
		t.Fatalf("Remux: %v", err)
	}
	if ffmpegCalled {
		t.Fatal("expected ffmpeg to be skipped when source has no audio")
	}
	if result.AudioAttached {
		t.Fatal("expected no audio attached")
	}
	if result.FallbackReason == "" {
		t.Fatal("expected a fallback reason")
	}
	content, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if string(content) != "silent" {
		t.Fatalf("expected intermediate promoted to final, got %q", content)
	}
}

func TestRemuxPromotesOnMuxFailure(t *testing.T) {
	dir := t.TempDir()
	intermediate := writeTempFile(t, dir, "clip_video_only.mp4", "silent")
	original := writeTempFile(t, dir, "clip.mp4", "original")
	final := filepath.Join(dir, "out.mp4")

	r := newTestRemuxer()
	r.probe = func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return audioResult(), nil
	}
	r.runCommand = func(_ context.Context, _ string, _ ...string) error {
		return errors.New("muxer exploded")
	}

	result, err := r.Remux(context.Background(), intermediate, original, final)
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if result.AudioAttached {
		t.Fatal("expected no audio attached")
	}
	if !strings.Contains(result.FallbackReason, "muxer exploded") {
		t.Fatalf("expected fallback reason to carry the failure, got %q", result.FallbackReason)
	}
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("expected final output present: %v", err)
	}
}

func TestRemuxPromotesOnProbeFailure(t *testing.T) {
	dir := t.TempDir()
	intermediate := writeTempFile(t, dir, "clip_video_only.mp4", "silent")
	original := writeTempFile(t, dir, "clip.mp4", "original")
	final := filepath.Join(dir, "out.mp4")

	r := newTestRemuxer()
	r.probe = func(_ context.Context, _, _ string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("ffprobe missing")
	}

	result, err := r.Remux(context.Background(), intermediate, original, final)
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if result.AudioAttached {
		t.Fatal("expected no audio attached")
	}
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("expected final output present: %v", err)
	}
}

func TestRemuxMissingIntermediateIsFatal(t *testing.T) {
	dir := t.TempDir()
	original := writeTempFile(t, dir, "clip.mp4", "original")

	r := newTestRemuxer()
	_, err := r.Remux(context.Background(), filepath.Join(dir, "absent.mp4"), original, filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
