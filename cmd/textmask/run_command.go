package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"textmask/internal/logging"
	"textmask/internal/process"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		modeFlag      string
		detectEvery   int
		confThresh    float64
		decayLimit    int
		gpuFlag       bool
		modelFlag     string
		noDetectCache bool
		bandRatio     float64
	)

	cmd := &cobra.Command{
		Use:   "run <input> <output>",
		Short: "Process a video, hiding detected text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Flag overrides apply to this run only.
			flags := cmd.Flags()
			if flags.Changed("mode") {
				cfg.Processing.Mode = modeFlag
			}
			if flags.Changed("detect-every") {
				cfg.Processing.DetectEvery = detectEvery
			}
			if flags.Changed("conf-thresh") {
				cfg.Processing.ConfThresh = confThresh
			}
			if flags.Changed("decay-limit") {
				cfg.Processing.DecayLimit = decayLimit
			}
			if flags.Changed("gpu") {
				cfg.Detection.GPU = gpuFlag
			}
			if flags.Changed("model") {
				cfg.Detection.ModelPath = modelFlag
			}
			if noDetectCache {
				cfg.DetectionCache.Enabled = false
			}
			if flags.Changed("band-ratio") {
				cfg.Processing.BandRatio = bandRatio
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closeLog, err := buildLogger(cfg.Logging.Format, cfg.Logging.Level, cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			defer closeLog()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := process.Run(runCtx, cfg, logger, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d frames (%d detection cycles, peak %d regions) in %s\n",
				summary.Stats.Frames, summary.Stats.DetectionCycles, summary.Stats.PeakRegions,
				summary.Elapsed.Round(time.Millisecond))
			if summary.AudioAttached {
				fmt.Fprintf(out, "Wrote %s with original audio\n", summary.OutputPath)
			} else {
				fmt.Fprintf(out, "Wrote %s without audio: %s\n", summary.OutputPath, summary.FallbackReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "Masking mode: blur or black")
	cmd.Flags().IntVar(&detectEvery, "detect-every", 0, "Run detection every N frames")
	cmd.Flags().Float64Var(&confThresh, "conf-thresh", 0, "Minimum detection confidence in [0,1]")
	cmd.Flags().IntVar(&decayLimit, "decay-limit", 0, "Missed detection cycles a region survives")
	cmd.Flags().BoolVar(&gpuFlag, "gpu", false, "Run the detector on CUDA")
	cmd.Flags().StringVar(&modelFlag, "model", "", "Path to the EAST model file")
	cmd.Flags().BoolVar(&noDetectCache, "no-detect-cache", false, "Disable the detection result cache")
	cmd.Flags().Float64Var(&bandRatio, "band-ratio", 1.0, "Reserved; detection always covers the full frame")

	return cmd
}

// buildLogger writes to stderr and, when a log directory is configured, to
// textmask.log inside it.
func buildLogger(format, level, logDir string) (logger *slog.Logger, closeLog func(), err error) {
	var writer io.Writer = os.Stderr
	closeLog = func() {}

	if logDir != "" {
		file, fileErr := logging.OpenLogFile(filepath.Join(logDir, "textmask.log"))
		if fileErr != nil {
			fmt.Fprintf(os.Stderr, "log file unavailable: %v\n", fileErr)
		} else {
			writer = io.MultiWriter(os.Stderr, file)
			closeLog = func() { _ = file.Close() }
		}
	}

	logger, err = logging.New(logging.Options{Level: level, Format: format, Writer: writer})
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return logger, closeLog, nil
}
