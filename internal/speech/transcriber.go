// Package speech transcribes normalized answer audio with Cloud Speech-to-Text.
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"

	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

// SampleRateHertz is sent with every request regardless of the source file.
// Files recorded at other rates may transcribe poorly.
const SampleRateHertz = 44100

const (
	EncodingFLAC        = "FLAC"
	EncodingMP3         = "MP3"
	EncodingLinear16    = "LINEAR16"
	EncodingOggOpus     = "OGG_OPUS"
	EncodingUnspecified = "ENCODING_UNSPECIFIED"

	defaultLanguage = "en-US"
	defaultTimeout  = 60 * time.Second
)

var encodingsByContentType = map[string]string{
	"audio/flac":   EncodingFLAC,
	"audio/x-flac": EncodingFLAC,
	"audio/mpeg":   EncodingMP3,
	"audio/mp3":    EncodingMP3,
	"audio/wav":    EncodingLinear16,
	"audio/x-wav":  EncodingLinear16,
	"audio/wave":   EncodingLinear16,
	"audio/ogg":    EncodingOggOpus,
	"audio/opus":   EncodingOggOpus,
}

var encodingsByExtension = map[string]string{
	"flac": EncodingFLAC,
	"mp3":  EncodingMP3,
	"wav":  EncodingLinear16,
	"ogg":  EncodingOggOpus,
	"opus": EncodingOggOpus,
}

// Audio points at a normalized file on local disk.
type Audio struct {
	Path        string
	FileName    string
	ContentType string
}

// Recognizer is the slice of the Speech-to-Text API the transcriber uses.
type Recognizer interface {
	Recognize(ctx context.Context, req *speechapi.RecognizeRequest) (*speechapi.RecognizeResponse, error)
}

type googleRecognizer struct {
	svc *speechapi.Service
}

func (g googleRecognizer) Recognize(ctx context.Context, req *speechapi.RecognizeRequest) (*speechapi.RecognizeResponse, error) {
	return g.svc.Speech.Recognize(req).Context(ctx).Do()
}

// Transcriber converts audio files to text.
type Transcriber struct {
	recognizer Recognizer
	language   string
	timeout    time.Duration
}

// NewGoogleTranscriber builds a transcriber backed by the Speech-to-Text v1 REST API.
func NewGoogleTranscriber(ctx context.Context, cfg config.SpeechConfig, gcp config.GCPConfig, opts ...option.ClientOption) (*Transcriber, error) {
	clientOpts := []option.ClientOption{}
	switch {
	case strings.TrimSpace(cfg.APIKey) != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := speechapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating speech service: %w", err)
	}
	return NewTranscriber(googleRecognizer{svc: svc}, cfg)
}

func NewTranscriber(recognizer Recognizer, cfg config.SpeechConfig) (*Transcriber, error) {
	if recognizer == nil {
		return nil, errors.New("speech recognizer required")
	}
	language := strings.TrimSpace(cfg.LanguageCode)
	if language == "" {
		language = defaultLanguage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Transcriber{recognizer: recognizer, language: language, timeout: timeout}, nil
}

// Transcribe sends the file to the recognizer and joins the top alternative
// of every result in order.
func (t *Transcriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	data, err := os.ReadFile(audio.Path)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	fileName := audio.FileName
	if fileName == "" {
		fileName = filepath.Base(audio.Path)
	}

	req := &speechapi.RecognizeRequest{
		Config: &speechapi.RecognitionConfig{
			Encoding:        EncodingFor(audio.ContentType, fileName),
			SampleRateHertz: SampleRateHertz,
			LanguageCode:    t.language,
		},
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(data),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.recognizer.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}
	return joinTranscripts(resp), nil
}

// EncodingFor picks the recognizer encoding from the content type, then the
// file extension. Unknown formats are sent as ENCODING_UNSPECIFIED.
func EncodingFor(contentType, fileName string) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if enc, ok := encodingsByContentType[mediaType]; ok {
		return enc
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if enc, ok := encodingsByExtension[ext]; ok {
		return enc
	}
	return EncodingUnspecified
}

func joinTranscripts(resp *speechapi.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 || result.Alternatives[0] == nil {
			continue
		}
		b.WriteString(result.Alternatives[0].Transcript)
	}
	return b.String()
}
