package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/angelmondragon/storyframe-backend/internal/deps"
)

// ErrCodecMissing marks a conversion that could not start because the codec
// binary is not installed.
var ErrCodecMissing = errors.New("codec binary not available")

// Codec converts an audio file into FLAC.
type Codec interface {
	ToFLAC(ctx context.Context, src, dst string) error
	Requirement() deps.Requirement
}

// CommandRunner executes name with args and returns combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	binary   string
	run      CommandRunner
	lookPath func(string) (string, error)
}

// FFmpegOption customizes an FFmpeg codec.
type FFmpegOption func(*FFmpeg)

// WithCommandRunner replaces process execution (for tests).
func WithCommandRunner(runner CommandRunner) FFmpegOption {
	return func(f *FFmpeg) {
		if runner != nil {
			f.run = runner
		}
	}
}

// WithLookPath replaces binary resolution (for tests).
func WithLookPath(lookPath func(string) (string, error)) FFmpegOption {
	return func(f *FFmpeg) {
		if lookPath != nil {
			f.lookPath = lookPath
		}
	}
}

func NewFFmpeg(binary string, opts ...FFmpegOption) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	f := &FFmpeg{binary: binary, run: execCombined, lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.WaitDelay = 2 * time.Second
	return cmd.CombinedOutput()
}

// ToFLAC converts src into a FLAC file at dst.
func (f *FFmpeg) ToFLAC(ctx context.Context, src, dst string) error {
	path, err := f.lookPath(f.binary)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodecMissing, err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-c:a", "flac",
		dst,
	}
	output, err := f.run(ctx, path, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg convert: %w", ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrCodecMissing, err)
		}
		return fmt.Errorf("ffmpeg convert: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("ffmpeg convert: output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("ffmpeg convert: output is empty")
	}
	return nil
}

// Requirement describes the binary for preflight checks.
func (f *FFmpeg) Requirement() deps.Requirement {
	return deps.Requirement{
		Name:        "FFmpeg",
		Command:     f.binary,
		Description: "Converts recorded answers to FLAC before transcription",
	}
}
