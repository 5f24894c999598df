package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storyframe-backend/api/responses"
	"github.com/angelmondragon/storyframe-backend/internal/deps"
	"github.com/angelmondragon/storyframe-backend/pkg/config"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
)

const readyTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness lists what /health/ready checks. Redis and Codec are optional.
type Readiness struct {
	DB    Pinger
	Redis Pinger
	Codec func() deps.Status
}

type readyReport struct {
	Status string       `json:"status"`
	Checks []readyCheck `json:"checks"`
	Codec  *deps.Status `json:"codec,omitempty"`
}

type readyCheck struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storyframe-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and Redis. A missing codec binary is
// reported but does not fail readiness since text answers still work.
func HealthReady(cfg *config.Config, checks Readiness, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storyframe-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		report := readyReport{Status: "ready"}
		ping := func(name string, p Pinger) {
			if p == nil {
				return
			}
			check := readyCheck{Name: name, OK: true}
			if err := p.Ping(ctx); err != nil {
				check.OK = false
				check.Error = err.Error()
				report.Status = "unavailable"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "check", name), "health.ready_failed", err)
				}
			}
			report.Checks = append(report.Checks, check)
		}
		ping("database", checks.DB)
		ping("redis", checks.Redis)

		if checks.Codec != nil {
			status := checks.Codec()
			report.Codec = &status
		}

		code := http.StatusOK
		if report.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, report)
	}
}
