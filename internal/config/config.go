package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Processing contains the per-run occlusion parameters. CLI flags override
// these values for individual runs.
type Processing struct {
	// Mode selects how matched regions are hidden: "blur" or "black".
	Mode string `toml:"mode"`
	// DetectEvery is the detection-cycle period in frames.
	DetectEvery int `toml:"detect_every"`
	// ConfThresh is the minimum detection confidence accepted, in [0,1].
	ConfThresh float64 `toml:"conf_thresh"`
	// DecayLimit is how many consecutive missed detection cycles a region
	// survives before eviction.
	DecayLimit int `toml:"decay_limit"`
	// OverlapThreshold is the minimum intersection-over-union for a new
	// candidate to refresh an existing region.
	OverlapThreshold float64 `toml:"overlap_threshold"`
	// MinBoxWidth/MinBoxHeight discard detection noise below this size.
	MinBoxWidth  int `toml:"min_box_width"`
	MinBoxHeight int `toml:"min_box_height"`
	// BandRatio is reserved. Earlier revisions restricted detection to
	// horizontal bands; detection now always runs on the full frame.
	BandRatio float64 `toml:"band_ratio"`
}

// Detection contains the EAST text-detector backend settings.
type Detection struct {
	ModelPath string `toml:"model_path"`
	GPU       bool   `toml:"gpu"`
	// InputWidth/InputHeight are the network input size. EAST requires
	// multiples of 32.
	InputWidth  int `toml:"input_width"`
	InputHeight int `toml:"input_height"`
	// ScoreThreshold gates raw network activations before NMS.
	ScoreThreshold float64 `toml:"score_threshold"`
	NMSThreshold   float64 `toml:"nms_threshold"`
}

// DetectionCache configures the sqlite cache of raw detection results.
type DetectionCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <cache_dir>/detections.db
}

// FFmpeg contains the external muxing tool configuration.
type FFmpeg struct {
	Binary        string `toml:"binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for textmask.
type Config struct {
	Paths          Paths          `toml:"paths"`
	Processing     Processing     `toml:"processing"`
	Detection      Detection      `toml:"detection"`
	DetectionCache DetectionCache `toml:"detection_cache"`
	FFmpeg         FFmpeg         `toml:"ffmpeg"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/textmask/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("textmask.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = expandOptional(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.CacheDir, err = expandOptional(c.Paths.CacheDir); err != nil {
		return err
	}
	if c.Detection.ModelPath, err = expandOptional(c.Detection.ModelPath); err != nil {
		return err
	}
	if c.DetectionCache.Path, err = expandOptional(c.DetectionCache.Path); err != nil {
		return err
	}
	if c.DetectionCache.Path == "" && c.Paths.CacheDir != "" {
		c.DetectionCache.Path = filepath.Join(c.Paths.CacheDir, "detections.db")
	}
	c.Processing.Mode = strings.ToLower(strings.TrimSpace(c.Processing.Mode))
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	return nil
}

// Validate checks all values that would otherwise fail mid-run.
func (c *Config) Validate() error {
	switch c.Processing.Mode {
	case "blur", "black":
	default:
		return fmt.Errorf("processing.mode: unsupported value %q (expected blur or black)", c.Processing.Mode)
	}
	if c.Processing.DetectEvery < 1 {
		return fmt.Errorf("processing.detect_every: must be a positive integer, got %d", c.Processing.DetectEvery)
	}
	if c.Processing.ConfThresh < 0 || c.Processing.ConfThresh > 1 {
		return fmt.Errorf("processing.conf_thresh: must be within [0,1], got %g", c.Processing.ConfThresh)
	}
	if c.Processing.DecayLimit < 0 {
		return fmt.Errorf("processing.decay_limit: must be non-negative, got %d", c.Processing.DecayLimit)
	}
	if c.Processing.OverlapThreshold <= 0 || c.Processing.OverlapThreshold > 1 {
		return fmt.Errorf("processing.overlap_threshold: must be within (0,1], got %g", c.Processing.OverlapThreshold)
	}
	if c.Processing.MinBoxWidth < 0 || c.Processing.MinBoxHeight < 0 {
		return fmt.Errorf("processing.min_box_width/min_box_height: must be non-negative")
	}
	if c.Detection.InputWidth <= 0 || c.Detection.InputWidth%32 != 0 ||
		c.Detection.InputHeight <= 0 || c.Detection.InputHeight%32 != 0 {
		return fmt.Errorf("detection.input_width/input_height: must be positive multiples of 32, got %dx%d",
			c.Detection.InputWidth, c.Detection.InputHeight)
	}
	if c.Detection.ScoreThreshold <= 0 || c.Detection.ScoreThreshold >= 1 {
		return fmt.Errorf("detection.score_threshold: must be within (0,1), got %g", c.Detection.ScoreThreshold)
	}
	if c.Detection.NMSThreshold <= 0 || c.Detection.NMSThreshold >= 1 {
		return fmt.Errorf("detection.nms_threshold: must be within (0,1), got %g", c.Detection.NMSThreshold)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// EnsureDirectories creates directories required before a run starts.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandOptional(pathValue string) (string, error) {
	if strings.TrimSpace(pathValue) == "" {
		return "", nil
	}
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
