// Package process orchestrates a full occlusion run: input validation,
// single-writer locking, pipeline construction, and audio remux.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"textmask/internal/config"
	"textmask/internal/deps"
	"textmask/internal/detect"
	"textmask/internal/detectcache"
	"textmask/internal/logging"
	"textmask/internal/mask"
	"textmask/internal/pipeline"
	"textmask/internal/regions"
	"textmask/internal/remux"
	"textmask/internal/services"
	"textmask/internal/video"
)

// Summary reports what a completed run produced.
type Summary struct {
	RunID         string
	Stats         pipeline.Stats
	AudioAttached bool
	// FallbackReason explains a silent output; empty when audio was attached.
	FallbackReason string
	Elapsed        time.Duration
	OutputPath     string
}

// Run executes one end-to-end occlusion pass over inputPath, writing the
// final container to outputPath. The configuration is taken as already
// validated; CLI flag overrides have been applied by the caller.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, inputPath, outputPath string) (Summary, error) {
	started := time.Now()
	runID := uuid.NewString()
	runLogger := logging.NewComponentLogger(logger, "process").With(
		logging.String(logging.FieldRunID, runID),
	)

	inputPath, outputPath, err := resolvePaths(inputPath, outputPath)
	if err != nil {
		return Summary{}, err
	}
	if missing := deps.MissingRequired(deps.Check(deps.ForConfig(cfg))); len(missing) > 0 {
		return Summary{}, services.Wrap(services.ErrConfiguration, "process", "check dependencies",
			"missing: "+strings.Join(missing, ", "), nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "process", "prepare directories", "", err)
	}

	// One writer per output path. A second run against the same output
	// would corrupt the container mid-write.
	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "process", "acquire output lock", outputPath, err)
	}
	if !locked {
		return Summary{}, services.Wrap(services.ErrValidation, "process", "acquire output lock",
			"another run is already writing "+outputPath, nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	mode, err := mask.ParseMode(cfg.Processing.Mode)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrValidation, "process", "parse mode", "", err)
	}

	reader, err := video.OpenReader(inputPath)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrExternalTool, "process", "open input", inputPath, err)
	}
	defer reader.Close()
	info := reader.Info()
	runLogger.Info("starting run",
		logging.String("input", inputPath),
		logging.String("output", outputPath),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Float64("fps", info.FPS),
		logging.Int("total_frames", info.TotalFrames),
		logging.String("mode", string(mode)),
	)

	detector, err := detect.NewEAST(cfg.Detection)
	if err != nil {
		return Summary{}, err
	}
	defer detector.Close()

	candidateCache, closeCache, err := openCandidateCache(cfg, inputPath, runLogger)
	if err != nil {
		// Cache trouble never blocks a run.
		runLogger.Warn("detection cache unavailable", logging.Error(err))
	}
	if closeCache != nil {
		defer closeCache()
	}

	adapter := detect.NewAdapter(detector, candidateCache, detect.AdapterOptions{
		ConfThresh:   cfg.Processing.ConfThresh,
		MinBoxWidth:  cfg.Processing.MinBoxWidth,
		MinBoxHeight: cfg.Processing.MinBoxHeight,
	}, logger)

	intermediate := intermediatePath(outputPath)
	writer, err := video.OpenWriter(intermediate, info)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrExternalTool, "process", "open output", intermediate, err)
	}

	driver := &pipeline.Driver{
		Source:  reader,
		Sink:    writer,
		Adapter: adapter,
		Cache: regions.NewCache(regions.Options{
			OverlapThreshold: cfg.Processing.OverlapThreshold,
			DecayLimit:       cfg.Processing.DecayLimit,
		}),
		Mode:        mode,
		DetectEvery: cfg.Processing.DetectEvery,
		TotalFrames: info.TotalFrames,
		Logger:      logger,
	}

	stats, runErr := driver.Run(ctx)
	if err := writer.Close(); err != nil && runErr == nil {
		runErr = services.Wrap(services.ErrExternalTool, "process", "finalize output", intermediate, err)
	}
	if runErr != nil {
		_ = os.Remove(intermediate)
		return Summary{}, runErr
	}

	muxResult, err := remux.New(cfg.FFmpeg.Binary, cfg.FFmpeg.FFprobeBinary, logger).
		Remux(ctx, intermediate, inputPath, outputPath)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		RunID:          runID,
		Stats:          stats,
		AudioAttached:  muxResult.AudioAttached,
		FallbackReason: muxResult.FallbackReason,
		Elapsed:        time.Since(started),
		OutputPath:     outputPath,
	}
	runLogger.Info("run complete",
		logging.Int("frames", stats.Frames),
		logging.Int("detection_cycles", stats.DetectionCycles),
		logging.Int("peak_regions", stats.PeakRegions),
		logging.Bool("audio_attached", summary.AudioAttached),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func resolvePaths(inputPath, outputPath string) (string, string, error) {
	inputPath, err := config.ExpandPath(inputPath)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "process", "resolve input", "", err)
	}
	outputPath, err = config.ExpandPath(outputPath)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "process", "resolve output", "", err)
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return "", "", services.Wrap(services.ErrNotFound, "process", "stat input", inputPath, err)
	}
	if info.IsDir() {
		return "", "", services.Wrap(services.ErrValidation, "process", "stat input",
			inputPath+" is a directory", nil)
	}
	if inputPath == outputPath {
		return "", "", services.Wrap(services.ErrValidation, "process", "resolve output",
			"input and output are the same file", nil)
	}
	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", services.Wrap(services.ErrValidation, "process", "prepare output directory", dir, err)
		}
	}
	return inputPath, outputPath, nil
}

// intermediatePath derives the silent-video scratch file written next to the
// final output, so the promote fallback stays a same-filesystem rename.
func intermediatePath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	stem := strings.TrimSuffix(outputPath, ext)
	return stem + "_video_only" + ext
}

func openCandidateCache(cfg *config.Config, inputPath string, logger *slog.Logger) (detect.CandidateCache, func(), error) {
	if !cfg.DetectionCache.Enabled || strings.TrimSpace(cfg.DetectionCache.Path) == "" {
		return nil, nil, nil
	}
	store, err := detectcache.Open(cfg.DetectionCache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open detection cache: %w", err)
	}
	fingerprint, err := detectcache.Fingerprint(inputPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("fingerprint input: %w", err)
	}
	model := modelIdentity(cfg.Detection)
	logger.Debug("detection cache enabled",
		logging.String("path", cfg.DetectionCache.Path),
		logging.String("fingerprint", fingerprint),
		logging.String("model", model),
	)
	return store.ForSource(fingerprint, model), func() { _ = store.Close() }, nil
}

// modelIdentity keys cached detections to everything that changes the raw
// candidate set. Mode and confidence filtering happen downstream and do not
// invalidate entries.
func modelIdentity(det config.Detection) string {
	return fmt.Sprintf("%s@%dx%d/s%.3f/n%.3f",
		filepath.Base(det.ModelPath), det.InputWidth, det.InputHeight,
		det.ScoreThreshold, det.NMSThreshold)
}
