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

	"github.com/mksagencies/storefront-backend/api/responses"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	pkgredis "github.com/mksagencies/storefront-backend/pkg/redis"
)

// OrderReplayWindow is how long a placed order can be replayed by key.
const OrderReplayWindow = 24 * time.Hour

const idempotencyHeader = "Idempotency-Key"

// replayRecord is what Redis holds per key. Pending marks a request that is
// still running; Body is the JSON the handler wrote.
type replayRecord struct {
	Pending     bool            `json:"pending,omitempty"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	RequestHash string          `json:"requestHash"`
}

// Idempotency makes the wrapped write safe to retry. A request carrying an
// Idempotency-Key runs once per caller and key; retries with the same body
// get the first response back, retries with another body or while the first
// is still running get 409. Requests without a key pass through.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := bodyHash(body)
			key := store.IdempotencyKey(callerScope(r), clientKey)

			if existing, err := loadRecord(ctx, store, key); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key"))
				return
			} else if existing != nil {
				replay(ctx, logg, w, existing, hash)
				return
			}

			reserved, err := saveRecord(ctx, store, key, replayRecord{Pending: true, RequestHash: hash}, ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				responses.WriteError(ctx, logg, w, errInProgress())
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// Free the key so a failed attempt can be retried.
			if err := store.Del(ctx, key); err != nil {
				logFailure(ctx, logg, "idempotency.release_failed", err)
				return
			}
			status, written := capture.statusCode(), capture.body.Bytes()
			if status >= http.StatusInternalServerError || (len(written) > 0 && !json.Valid(written)) {
				return
			}
			final := replayRecord{Status: status, Body: written, RequestHash: hash}
			if _, err := saveRecord(ctx, store, key, final, ttl); err != nil {
				logFailure(ctx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, rec *replayRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "Idempotency-Key was already used with a different request"))
	case rec.Pending:
		responses.WriteError(ctx, logg, w, errInProgress())
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

func errInProgress() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "A request with this Idempotency-Key is still being processed")
}

// callerScope keeps two callers from colliding on the same client key:
// signed-in callers by subject, guests by client IP.
func callerScope(r *http.Request) string {
	caller := ClientIPFromContext(r.Context())
	if sub := ClaimsFromContext(r.Context()).Subject(); sub != "" {
		caller = sub
	}
	return caller + "|" + r.Method + "|" + r.URL.Path
}

func loadRecord(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*replayRecord, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec replayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func saveRecord(ctx context.Context, store pkgredis.IdempotencyStore, key string, rec replayRecord, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(payload), ttl)
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
