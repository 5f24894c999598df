// Package audio prepares recorded answers for speech recognition.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storyframe-backend/internal/deps"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

// Reason explains why a clip could not be normalized.
type Reason string

const (
	ReasonCodecMissing Reason = "codec_missing"
	ReasonCodecFailed  Reason = "codec_failed"
	ReasonIOError      Reason = "io_error"
)

const defaultCodecTimeout = 45 * time.Second

// formats the recognizer accepts as-is
var passthroughFormats = map[string]string{
	"flac": "audio/flac",
	"wav":  "audio/wav",
}

var extensionsByContentType = map[string]string{
	"audio/flac":   "flac",
	"audio/x-flac": "flac",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/wave":   "wav",
	"audio/mpeg":   "mp3",
	"audio/mp3":    "mp3",
	"audio/mp4":    "m4a",
	"audio/x-m4a":  "m4a",
	"audio/aac":    "aac",
	"audio/ogg":    "ogg",
	"audio/opus":   "opus",
	"audio/webm":   "webm",
	"video/webm":   "webm",
	"audio/3gpp":   "3gp",
}

// Clip is a recorded answer as received from the client.
type Clip struct {
	FileName    string
	ContentType string
	Data        io.Reader
}

// Result is the outcome of normalizing a clip. A successful result owns a
// scratch directory until Release is called; a failed result owns nothing.
type Result struct {
	Path        string
	Format      string
	ContentType string
	Converted   bool

	Reason Reason
	Detail string

	dir string
}

// OK reports whether the clip is ready for transcription.
func (r Result) OK() bool {
	return r.Reason == "" && r.Path != ""
}

// Release removes the scratch directory. Safe to call more than once.
func (r Result) Release() error {
	if r.dir == "" {
		return nil
	}
	if err := os.RemoveAll(r.dir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}
	return nil
}

// Normalizer turns arbitrary recorded audio into FLAC or WAV on local disk.
type Normalizer struct {
	codec       Codec
	scratchRoot string
	timeout     time.Duration
}

func NewNormalizer(cfg config.CodecConfig, codec Codec) (*Normalizer, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCodecTimeout
	}
	return &Normalizer{
		codec:       codec,
		scratchRoot: strings.TrimSpace(cfg.ScratchDir),
		timeout:     timeout,
	}, nil
}

// Normalize writes clip into a private scratch directory, converting it to
// FLAC unless it is already FLAC or WAV.
func (n *Normalizer) Normalize(ctx context.Context, clip Clip) Result {
	if clip.Data == nil {
		return Result{Reason: ReasonIOError, Detail: "audio data is empty"}
	}

	ext := Extension(clip.FileName, clip.ContentType)

	dir, err := os.MkdirTemp(n.scratchRoot, "answer-audio-*")
	if err != nil {
		return Result{Reason: ReasonIOError, Detail: fmt.Sprintf("create scratch dir: %v", err)}
	}

	input := filepath.Join(dir, "input."+ext)
	if err := writeFile(input, clip.Data); err != nil {
		return fail(dir, ReasonIOError, err)
	}

	if contentType, ok := passthroughFormats[ext]; ok {
		return Result{Path: input, Format: ext, ContentType: contentType, dir: dir}
	}

	convertCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	output := filepath.Join(dir, "output.flac")
	if err := n.codec.ToFLAC(convertCtx, input, output); err != nil {
		switch {
		case errors.Is(err, ErrCodecMissing):
			return fail(dir, ReasonCodecMissing, err)
		case errors.Is(err, context.DeadlineExceeded):
			return fail(dir, ReasonCodecFailed, fmt.Errorf("conversion timed out after %s: %w", n.timeout, err))
		default:
			return fail(dir, ReasonCodecFailed, err)
		}
	}

	return Result{
		Path:        output,
		Format:      "flac",
		ContentType: passthroughFormats["flac"],
		Converted:   true,
		dir:         dir,
	}
}

// Preflight reports whether the codec binary can be found. It is meant for
// health checks and tooling, not the request path.
func (n *Normalizer) Preflight() deps.Status {
	return deps.Check(n.codec.Requirement())
}

// Extension derives a lower-cased extension from fileName, falling back to
// contentType when the name carries none.
func Extension(fileName, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(fileName)), "."))
	if ext != "" {
		return ext
	}

	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if mapped, ok := extensionsByContentType[mediaType]; ok {
		return mapped
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}

func writeFile(path string, data io.Reader) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	n, err := io.Copy(f, data)
	if err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	if n == 0 {
		return errors.New("audio data is empty")
	}
	return nil
}

func fail(dir string, reason Reason, cause error) Result {
	err := multierr.Append(cause, removeDir(dir))
	return Result{Reason: reason, Detail: err.Error()}
}

func removeDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}
	return nil
}
