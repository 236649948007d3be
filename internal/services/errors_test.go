package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "remux", "mux audio", "ffmpeg failed", base)

	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected underlying error preserved, got %v", err)
	}
	want := "external tool error: remux: mux audio: ffmpeg failed: exit status 1"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsFatalConfig(t *testing.T) {
	cases := []struct {
		name   string
		marker error
		want   bool
	}{
		{"validation", ErrValidation, true},
		{"configuration", ErrConfiguration, true},
		{"external", ErrExternalTool, false},
		{"transient", ErrTransient, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Wrap(tc.marker, "config", "validate", "bad value", nil)
			if got := IsFatalConfig(err); got != tc.want {
				t.Fatalf("IsFatalConfig(%v) = %v, want %v", tc.marker, got, tc.want)
			}
		})
	}
}
