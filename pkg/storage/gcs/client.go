// Package gcs is a small Cloud Storage JSON API client scoped to one bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/angelmondragon/storyframe-backend/pkg/config"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

const (
	defaultAPIBase = "https://storage.googleapis.com"
	pingTimeout    = 5 * time.Second
	requestTimeout = 30 * time.Second
)

type Client struct {
	hc         *http.Client
	apiBase    string
	publicBase string
	bucket     string
	tokens     *tokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithAPIBase points the client at another API host, such as a local emulator.
func WithAPIBase(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiBase = strings.TrimRight(base, "/")
		}
	}
}

// WithStaticToken skips credential discovery and always presents token.
func WithStaticToken(token string) Option {
	return func(c *Client) {
		c.tokens = &tokenSource{fetch: func(context.Context) (accessToken, error) {
			return accessToken{value: token, expiry: time.Now().Add(time.Hour)}, nil
		}}
	}
}

// NewClient resolves credentials and confirms the bucket is reachable.
// Credentials come from inline JSON, then a credentials file, then the
// metadata server.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	c, err := newClient(cfg, gcp, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", c.bucket), "gcs client initialized")
	}
	return c, nil
}

func newClient(cfg config.GCSConfig, gcp config.GCPConfig, opts ...Option) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	c := &Client{
		hc:         &http.Client{Timeout: requestTimeout},
		apiBase:    defaultAPIBase,
		publicBase: defaultAPIBase,
		bucket:     cfg.BucketName,
	}
	if base := strings.TrimRight(cfg.PublicBaseURL, "/"); base != "" {
		c.publicBase = base
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens != nil {
		return c, nil
	}

	creds := gcp.CredentialsJSON
	if creds == "" && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		creds = string(raw)
	}
	if creds == "" {
		c.tokens = newMetadataTokenSource(c.hc)
		return c, nil
	}

	tokens, err := newServiceAccountTokenSource(c.hc, creds)
	if err != nil {
		return nil, err
	}
	c.tokens = tokens
	return c, nil
}

// Ping lists at most one object to confirm credentials and bucket access.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/storage/v1/b/" + url.PathEscape(c.bucket) + "/o",
		query:  url.Values{"maxResults": {"1"}},
		ok:     []int{http.StatusOK},
		op:     "gcs object check",
	})
	return err
}

type request struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        io.Reader
	ok          []int
	op          string
}

// call performs an authorized request and returns the status code. Statuses
// outside req.ok become errors carrying the response body.
func (c *Client) call(ctx context.Context, req request) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("gcs token: %w", err)
	}

	target := c.apiBase + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", req.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !slices.Contains(req.ok, resp.StatusCode) {
		return resp.StatusCode, statusError(req.op+" failed", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func statusError(prefix string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, msg)
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}
