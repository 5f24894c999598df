package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storyframe-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storyframe-backend/pkg/redis"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	DefaultIdempotencyTTL = 24 * time.Hour

	replayHeader = "Idempotent-Replay"
)

// replayRecord is the JSON value stored per key.
type replayRecord struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// Idempotency requires an Idempotency-Key header and replays the stored
// response for repeated keys. Reusing a key with a different body is rejected.
// Server errors are not stored so the caller can retry with the same key.
// A nil store disables the check.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, maxBody int64, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := bufferBody(w, r, maxBody)
			if err != nil {
				fail(err)
				return
			}
			fingerprint := fingerprintOf(body)
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			prior, found, err := loadRecord(ctx, store, key)
			if err != nil {
				fail(err)
				return
			}
			if found {
				if prior.Fingerprint != fingerprint {
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.replay(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}

			saveRecord(ctx, logg, store, key, ttl, replayRecord{
				Fingerprint: fingerprint,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
		})
	}
}

// bufferBody reads the request body fully so it can be hashed and replayed to
// the next handler.
func bufferBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	src := r.Body
	if limit > 0 {
		src = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func loadRecord(ctx context.Context, store pkgredis.IdempotencyStore, key string) (replayRecord, bool, error) {
	var rec replayRecord
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		return rec, false, nil
	case err != nil:
		return rec, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check idempotency")
	case raw == "":
		return rec, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record")
	}
	return rec, true, nil
}

// saveRecord keeps the first response stored under key. Failures are logged
// only; the client already has its response.
func saveRecord(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, ttl time.Duration, rec replayRecord) {
	payload, err := json.Marshal(rec)
	if err == nil {
		_, err = store.SetNX(ctx, key, string(payload), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "idempotency.persist_failed", err)
	}
}

func (rec replayRecord) replay(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

// responseCapture tees the response so it can be stored after the handler returns.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
