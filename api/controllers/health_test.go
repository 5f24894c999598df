package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storyframe-backend/internal/deps"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
)

func TestHealthReadyReportsCodec(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	checks := Readiness{
		DB:    stubPinger{},
		Codec: func() deps.Status { return deps.Status{Name: "ffmpeg", Available: false} },
	}

	resp := httptest.NewRecorder()
	HealthReady(cfg, checks, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("missing codec should not fail readiness, got %d", resp.Code)
	}

	var envelope struct {
		Data readyReport `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Codec == nil || envelope.Data.Codec.Available {
		t.Fatalf("expected unavailable codec in report, got %+v", envelope.Data.Codec)
	}
	if len(envelope.Data.Checks) != 1 || !envelope.Data.Checks[0].OK {
		t.Fatalf("unexpected checks %+v", envelope.Data.Checks)
	}
}

func TestHealthReadyFailsOnDatabase(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	checks := Readiness{DB: stubPinger{err: errors.New("connection refused")}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, checks, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK || resp.Header().Get("X-Storyframe-Env") != "prod" {
		t.Fatalf("unexpected response %d %v", resp.Code, resp.Header())
	}
}
