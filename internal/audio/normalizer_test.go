package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storyframe-backend/internal/deps"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

type stubCodec struct {
	calls   int
	err     error
	lastSrc string
}

func (s *stubCodec) ToFLAC(_ context.Context, src, dst string) error {
	s.calls++
	s.lastSrc = src
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(dst, []byte("fLaC"), 0o600)
}

func (s *stubCodec) Requirement() deps.Requirement {
	return deps.Requirement{Name: "stub", Command: "definitely-not-a-real-codec"}
}

func newTestNormalizer(t *testing.T, codec Codec, timeout time.Duration) (*Normalizer, string) {
	t.Helper()
	root := t.TempDir()
	n, err := NewNormalizer(config.CodecConfig{ScratchDir: root, Timeout: timeout}, codec)
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	return n, root
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch root to be empty, found %d entries", len(entries))
	}
}

func TestNormalizePassesThroughWavAndFlac(t *testing.T) {
	for _, tc := range []struct {
		fileName    string
		contentType string
		format      string
	}{
		{"answer.WAV", "", "wav"},
		{"answer.flac", "audio/flac", "flac"},
		{"", "audio/x-wav", "wav"},
	} {
		codec := &stubCodec{}
		n, root := newTestNormalizer(t, codec, time.Second)

		result := n.Normalize(context.Background(), Clip{FileName: tc.fileName, ContentType: tc.contentType, Data: strings.NewReader("RIFFdata")})
		if !result.OK() {
			t.Fatalf("%s: expected ok result, got %s %s", tc.fileName, result.Reason, result.Detail)
		}
		if result.Format != tc.format || result.Converted {
			t.Fatalf("%s: unexpected result %+v", tc.fileName, result)
		}
		if codec.calls != 0 {
			t.Fatalf("%s: passthrough must not invoke the codec", tc.fileName)
		}
		data, err := os.ReadFile(result.Path)
		if err != nil || string(data) != "RIFFdata" {
			t.Fatalf("%s: expected copied bytes, got %q err=%v", tc.fileName, data, err)
		}

		if err := result.Release(); err != nil {
			t.Fatalf("release: %v", err)
		}
		if err := result.Release(); err != nil {
			t.Fatalf("second release should be a no-op: %v", err)
		}
		requireEmptyDir(t, root)
	}
}

func TestNormalizeConvertsOtherFormats(t *testing.T) {
	codec := &stubCodec{}
	n, root := newTestNormalizer(t, codec, time.Second)

	result := n.Normalize(context.Background(), Clip{FileName: "memo.m4a", Data: strings.NewReader("m4a-bytes")})
	if !result.OK() {
		t.Fatalf("expected ok result, got %s %s", result.Reason, result.Detail)
	}
	if result.Format != "flac" || result.ContentType != "audio/flac" || !result.Converted {
		t.Fatalf("unexpected result %+v", result)
	}
	if filepath.Ext(codec.lastSrc) != ".m4a" {
		t.Fatalf("codec should receive the original extension, got %s", codec.lastSrc)
	}

	if err := result.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	requireEmptyDir(t, root)
}

func TestNormalizeCodecMissingCleansUp(t *testing.T) {
	codec := &stubCodec{err: fmt.Errorf("%w: exec: \"ffmpeg\": not found", ErrCodecMissing)}
	n, root := newTestNormalizer(t, codec, time.Second)

	result := n.Normalize(context.Background(), Clip{FileName: "memo.m4a", Data: strings.NewReader("m4a-bytes")})
	if result.OK() {
		t.Fatalf("expected unavailable result")
	}
	if result.Reason != ReasonCodecMissing {
		t.Fatalf("expected codec_missing, got %s", result.Reason)
	}
	requireEmptyDir(t, root)
}

func TestNormalizeCodecFailureCleansUp(t *testing.T) {
	codec := &stubCodec{err: errors.New("ffmpeg convert: exit status 1: Invalid data found")}
	n, root := newTestNormalizer(t, codec, time.Second)

	result := n.Normalize(context.Background(), Clip{FileName: "memo.ogg", Data: strings.NewReader("x")})
	if result.Reason != ReasonCodecFailed || !strings.Contains(result.Detail, "Invalid data found") {
		t.Fatalf("unexpected result %+v", result)
	}
	requireEmptyDir(t, root)
}

func TestNormalizeEmptyInputIsIOError(t *testing.T) {
	n, root := newTestNormalizer(t, &stubCodec{}, time.Second)

	result := n.Normalize(context.Background(), Clip{FileName: "a.wav", Data: bytes.NewReader(nil)})
	if result.Reason != ReasonIOError {
		t.Fatalf("expected io_error, got %+v", result)
	}
	requireEmptyDir(t, root)

	if got := n.Normalize(context.Background(), Clip{FileName: "a.wav"}); got.Reason != ReasonIOError {
		t.Fatalf("nil data should be io_error, got %+v", got)
	}
}

func TestNormalizeWithFFmpegStubScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	bin := t.TempDir()

	writeStub := func(name, body string) string {
		path := filepath.Join(bin, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
		return path
	}

	t.Run("success", func(t *testing.T) {
		n, root := newTestNormalizer(t, NewFFmpeg(writeStub("ffmpeg-ok", `cp "$6" "$9"`)), 5*time.Second)
		result := n.Normalize(context.Background(), Clip{FileName: "a.mp3", Data: strings.NewReader("ID3")})
		if !result.OK() {
			t.Fatalf("expected ok, got %s %s", result.Reason, result.Detail)
		}
		if err := result.Release(); err != nil {
			t.Fatalf("release: %v", err)
		}
		requireEmptyDir(t, root)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		n, root := newTestNormalizer(t, NewFFmpeg(writeStub("ffmpeg-bad", `echo "Invalid data found when processing input" >&2; exit 1`)), 5*time.Second)
		result := n.Normalize(context.Background(), Clip{FileName: "a.mp3", Data: strings.NewReader("ID3")})
		if result.Reason != ReasonCodecFailed || !strings.Contains(result.Detail, "Invalid data found") {
			t.Fatalf("unexpected result %+v", result)
		}
		requireEmptyDir(t, root)
	})

	t.Run("timeout", func(t *testing.T) {
		n, root := newTestNormalizer(t, NewFFmpeg(writeStub("ffmpeg-slow", `exec sleep 10`)), 200*time.Millisecond)
		start := time.Now()
		result := n.Normalize(context.Background(), Clip{FileName: "a.mp3", Data: strings.NewReader("ID3")})
		if result.Reason != ReasonCodecFailed || !strings.Contains(result.Detail, "timed out") {
			t.Fatalf("unexpected result %+v", result)
		}
		if time.Since(start) > 5*time.Second {
			t.Fatalf("timeout was not enforced")
		}
		requireEmptyDir(t, root)
	})

	t.Run("missing binary", func(t *testing.T) {
		n, root := newTestNormalizer(t, NewFFmpeg(filepath.Join(bin, "nope")), time.Second)
		result := n.Normalize(context.Background(), Clip{FileName: "a.m4a", Data: strings.NewReader("x")})
		if result.Reason != ReasonCodecMissing {
			t.Fatalf("expected codec_missing, got %+v", result)
		}
		requireEmptyDir(t, root)
	})
}

func TestFFmpegUsesFlacArguments(t *testing.T) {
	var gotName string
	var gotArgs []string
	codec := NewFFmpeg("ffmpeg",
		WithLookPath(func(string) (string, error) { return "/usr/bin/ffmpeg", nil }),
		WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName, gotArgs = name, args
			return nil, os.WriteFile(args[len(args)-1], []byte("fLaC"), 0o600)
		}),
	)

	dst := filepath.Join(t.TempDir(), "out.flac")
	if err := codec.ToFLAC(context.Background(), "in.m4a", dst); err != nil {
		t.Fatalf("ToFLAC: %v", err)
	}
	want := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "in.m4a", "-c:a", "flac", dst}
	if gotName != "/usr/bin/ffmpeg" || strings.Join(gotArgs, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected invocation %s %v", gotName, gotArgs)
	}
}

func TestPreflightReportsMissingCodec(t *testing.T) {
	n, _ := newTestNormalizer(t, &stubCodec{}, time.Second)
	status := n.Preflight()
	if status.Available || status.Detail == "" {
		t.Fatalf("expected unavailable status, got %+v", status)
	}
}

func TestExtension(t *testing.T) {
	cases := []struct {
		fileName    string
		contentType string
		want        string
	}{
		{"Memo.M4A", "audio/wav", "m4a"},
		{"", "audio/mpeg", "mp3"},
		{"noext", "audio/ogg; codecs=opus", "ogg"},
		{"", "", "bin"},
	}
	for _, tc := range cases {
		if got := Extension(tc.fileName, tc.contentType); got != tc.want {
			t.Fatalf("Extension(%q, %q) = %q, want %q", tc.fileName, tc.contentType, got, tc.want)
		}
	}
}
