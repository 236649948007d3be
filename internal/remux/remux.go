// Package remux reattaches the original audio track to the silent video
// produced by the frame pipeline. Failures degrade: when ffmpeg cannot mux,
// the silent intermediate is promoted to the final output so a run never
// loses its video work over an audio problem.
package remux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"textmask/internal/fileutil"
	"textmask/internal/logging"
	"textmask/internal/media/ffprobe"
	"textmask/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

type probeFunc func(ctx context.Context, binary string, path string) (ffprobe.Result, error)

// Result reports how the final output was produced.
type Result struct {
	AudioAttached bool
	// FallbackReason is set when the intermediate was promoted without audio.
	FallbackReason string
}

// Remuxer merges the processed video stream with the original audio via
// stream copy. The external commands are injectable for testing.
type Remuxer struct {
	ffmpegBinary  string
	ffprobeBinary string
	logger        *slog.Logger
	runCommand    commandRunner
	probe         probeFunc
}

// New builds a Remuxer using the configured ffmpeg and ffprobe binaries.
func New(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Remuxer {
	return &Remuxer{
		ffmpegBinary:  strings.TrimSpace(ffmpegBinary),
		ffprobeBinary: strings.TrimSpace(ffprobeBinary),
		logger:        logging.NewComponentLogger(logger, "remux"),
		runCommand:    runCommand,
		probe:         ffprobe.Inspect,
	}
}

// Remux produces finalPath from the silent videoOnly file plus the audio of
// originalPath. When the original has no audio, or ffmpeg fails, videoOnly
// is renamed into place instead and the Result explains why.
func (r *Remuxer) Remux(ctx context.Context, videoOnly, originalPath, finalPath string) (Result, error) {
	if _, err := os.Stat(videoOnly); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "remux", "stat intermediate", videoOnly, err)
	}

	probed, err := r.probe(ctx, r.ffprobeBinary, originalPath)
	if err != nil {
		r.logger.Warn("audio probe failed, keeping silent output",
			logging.String("source", originalPath),
			logging.Error(err),
		)
		return r.promote(videoOnly, finalPath, fmt.Sprintf("probe failed: %v", err))
	}
	if !probed.HasAudio() {
		r.logger.Info("source has no audio stream", logging.String("source", originalPath))
		return r.promote(videoOnly, finalPath, "source has no audio stream")
	}

	args := []string{
		"-y",
		"-i", videoOnly,
		"-i", originalPath,
		"-map", "0:v:0",
		"-map", "1:a?",
		"-c:v", "copy",
		"-c:a", "copy",
		finalPath,
	}
	if err := r.runCommand(ctx, r.ffmpegBinary, args...); err != nil {
		r.logger.Warn("audio mux failed, keeping silent output", logging.Error(err))
		return r.promote(videoOnly, finalPath, fmt.Sprintf("ffmpeg mux failed: %v", err))
	}

	if err := os.Remove(videoOnly); err != nil {
		r.logger.Warn("could not remove intermediate file",
			logging.String("path", videoOnly),
			logging.Error(err),
		)
	}
	r.logger.Info("audio reattached", logging.String("output", finalPath))
	return Result{AudioAttached: true}, nil
}

func (r *Remuxer) promote(videoOnly, finalPath, reason string) (Result, error) {
	if err := fileutil.MoveFile(videoOnly, finalPath); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "remux", "promote intermediate", finalPath, err)
	}
	return Result{AudioAttached: false, FallbackReason: reason}, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	binary := strings.TrimSpace(name)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}
