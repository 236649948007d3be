package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultMode             = "blur"
	defaultDetectEvery      = 10
	defaultConfThresh       = 0.0
	defaultDecayLimit       = 2
	defaultOverlapThreshold = 0.05
	defaultMinBoxWidth      = 10
	defaultMinBoxHeight     = 10
	defaultBandRatio        = 1.0
	defaultModelPath        = "~/.local/share/textmask/frozen_east_text_detection.pb"
	defaultInputWidth       = 320
	defaultInputHeight      = 320
	defaultScoreThreshold   = 0.5
	defaultNMSThreshold     = 0.4
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
		},
		Processing: Processing{
			Mode:             defaultMode,
			DetectEvery:      defaultDetectEvery,
			ConfThresh:       defaultConfThresh,
			DecayLimit:       defaultDecayLimit,
			OverlapThreshold: defaultOverlapThreshold,
			MinBoxWidth:      defaultMinBoxWidth,
			MinBoxHeight:     defaultMinBoxHeight,
			BandRatio:        defaultBandRatio,
		},
		Detection: Detection{
			ModelPath:      defaultModelPath,
			InputWidth:     defaultInputWidth,
			InputHeight:    defaultInputHeight,
			ScoreThreshold: defaultScoreThreshold,
			NMSThreshold:   defaultNMSThreshold,
		},
		FFmpeg: FFmpeg{
			Binary:        defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "textmask")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/textmask"
	}
	return filepath.Join(home, ".cache", "textmask")
}
