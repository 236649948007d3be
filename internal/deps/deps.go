// Package deps reports the availability of external tools and model files
// textmask relies on at runtime.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"textmask/internal/config"
)

// Requirement defines an external dependency textmask relies on.
type Requirement struct {
	Name        string
	Command     string // binary resolved via PATH; mutually exclusive with Path
	Path        string // file checked on disk
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig builds the requirement list for the given configuration.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpeg.Binary,
			Description: "Reattaches the original audio track; without it output stays silent",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFmpeg.FFprobeBinary,
			Description: "Container inspection before remux and for the probe command",
			Optional:    true,
		},
		{
			Name:        "EAST model",
			Path:        cfg.Detection.ModelPath,
			Description: "Frozen EAST text detection graph loaded by the detector",
		},
	}
}

// Check evaluates the provided requirements and reports availability.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case strings.TrimSpace(req.Path) != "":
			status.Command = req.Path
			if info, err := os.Stat(req.Path); err != nil || !info.Mode().IsRegular() {
				status.Detail = fmt.Sprintf("file %q not found", req.Path)
			} else {
				status.Available = true
			}
		case strings.TrimSpace(req.Command) != "":
			cmd := strings.TrimSpace(req.Command)
			status.Command = cmd
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = resolved
				status.Available = true
			}
		default:
			status.Detail = "requirement not configured"
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required dependencies that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
