// Package narrative is the HTTP client for the story generation engine.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

const (
	defaultTimeout   = 120 * time.Second
	maxResponseBytes = 4 << 20
	statusSuccess    = "success"
)

type Question struct {
	ID       uuid.UUID `json:"id"`
	Content  string    `json:"content"`
	Category string    `json:"category"`
	Level    int       `json:"level"`
	Theme    string    `json:"theme"`
}

type Answer struct {
	ID       uuid.UUID `json:"id"`
	Content  string    `json:"content"`
	AuthorID uuid.UUID `json:"author_id"`
}

type Options struct {
	Style  string `json:"style"`
	Length string `json:"length"`
}

// Request is the payload sent to the engine.
type Request struct {
	MediaID   uuid.UUID  `json:"media_id"`
	Questions []Question `json:"questions"`
	Answers   []Answer   `json:"answers"`
	Options   Options    `json:"options"`
	ImageURL  string     `json:"image_url,omitempty"`
}

type response struct {
	Status       string `json:"status"`
	StoryContent string `json:"story_content"`
	Message      string `json:"message"`
}

// EngineError is a well-formed non-success reply from the engine.
type EngineError struct {
	Status  string
	Message string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("narrative engine returned status %q", e.Status)
	}
	return e.Message
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("narrative request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client calls the story generation engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg config.NarrativeConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("narrative base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{baseURL: base, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Generate asks the engine for a story and returns its content. A reply whose
// status is not "success" yields an *EngineError carrying the engine message.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("narrative request: encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stories", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("narrative request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("narrative request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("narrative request: read body: %w", err)
	}

	var parsed response
	decodeErr := json.Unmarshal(data, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && strings.TrimSpace(parsed.Message) != "" {
			return "", &EngineError{Status: parsed.Status, Message: strings.TrimSpace(parsed.Message)}
		}
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("narrative request: decode: %w", decodeErr)
	}
	if !strings.EqualFold(strings.TrimSpace(parsed.Status), statusSuccess) {
		return "", &EngineError{Status: parsed.Status, Message: strings.TrimSpace(parsed.Message)}
	}
	if strings.TrimSpace(parsed.StoryContent) == "" {
		return "", &EngineError{Status: parsed.Status, Message: "narrative engine returned an empty story"}
	}
	return parsed.StoryContent, nil
}
