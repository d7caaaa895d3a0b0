// Package media validates video assets with FFprobe.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
)

// FFprobeConfig holds configuration for the FFprobe prober.
type FFprobeConfig struct {
	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used (assumes it's in PATH).
	FFprobePath string

	// Timeout bounds a single probe. Zero means no timeout beyond the caller's context.
	Timeout time.Duration
}

// DefaultFFprobeConfig returns an FFprobeConfig with production-ready defaults.
func DefaultFFprobeConfig() FFprobeConfig {
	return FFprobeConfig{
		FFprobePath: "ffprobe",
		Timeout:     10 * time.Second,
	}
}

// FFprobe reads container duration through the ffprobe CLI.
type FFprobe struct {
	config FFprobeConfig
}

// NewFFprobe creates a new FFprobe-based prober.
func NewFFprobe(cfg FFprobeConfig) *FFprobe {
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	return &FFprobe{config: cfg}
}

// Probe returns the duration of the media at location (a file path or URL).
// Failures caused by the media itself wrap model.ErrAssetUnplayable;
// a missing ffprobe binary wraps model.ErrConstructionFailed.
func (f *FFprobe) Probe(ctx context.Context, location string) (time.Duration, error) {
	if !isRemote(location) {
		if err := f.validateInput(location); err != nil {
			return 0, err
		}
	}

	bin, err := exec.LookPath(f.config.FFprobePath)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe unavailable: %v", model.ErrConstructionFailed, err)
	}

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, f.buildArgs(location)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("probe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: ffprobe failed: %v: %s", model.ErrAssetUnplayable, err, strings.TrimSpace(stderr.String()))
	}

	return parseDuration(stdout.String())
}

// validateInput checks if the input file exists and is not a directory.
func (f *FFprobe) validateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", model.ErrResourceNotFound, path)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: input path is a directory: %s", model.ErrAssetUnplayable, path)
	}

	return nil
}

// buildArgs constructs the ffprobe command arguments.
func (f *FFprobe) buildArgs(location string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0", // Fail on files without a video stream
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		location,
	}
}

// parseDuration converts ffprobe's seconds output into a Duration.
func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("%w: no duration reported", model.ErrAssetUnplayable)
	}

	// ffprobe may print one line per entry; the format duration is the last one.
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid duration %q", model.ErrAssetUnplayable, s)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%w: non-positive duration %q", model.ErrAssetUnplayable, s)
	}

	return time.Duration(secs * float64(time.Second)), nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
