package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func orderRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"items":[]}`, ""))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"items":[]}`, ""))

	if calls != 2 {
		t.Fatalf("expected handler to run for every keyless request, ran %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %v", store.data)
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"orderNumber":"MKS-20250301-AB12"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"total":100}`, "abc"))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, orderRequest(`{"total":100}`, "abc"))

	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatal("expected content-type header preserved")
	}
	if strings.TrimSpace(replay.Body.String()) != strings.TrimSpace(first.Body.String()) {
		t.Fatalf("expected stored body, got %s", replay.Body.String())
	}
}

func TestIdempotencyMiddlewareScopesByCaller(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	alice := orderRequest(`{}`, "same")
	alice = alice.WithContext(WithClaims(alice.Context(), &pkgauth.Claims{UserID: "alice"}))
	bob := orderRequest(`{}`, "same")
	bob = bob.WithContext(WithClaims(bob.Context(), &pkgauth.Claims{UserID: "bob"}))

	handler.ServeHTTP(httptest.NewRecorder(), alice)
	handler.ServeHTTP(httptest.NewRecorder(), bob)

	if calls != 2 {
		t.Fatalf("expected distinct callers not to share keys, ran %d", calls)
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry-me"))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry-me"))

	if calls != 2 {
		t.Fatalf("expected failed attempts to be retryable, ran %d", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"total":100}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"total":1}`, "xyz"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeConflict, payload.Code)
	}
}

func TestIdempotencyMiddlewareRejectsConcurrentRetry(t *testing.T) {
	store := newFakeStore()
	inner := httptest.NewRecorder()
	var handler http.Handler
	handler = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A second submit arrives while the first is still placing the order.
		handler.ServeHTTP(inner, orderRequest(`{"total":100}`, "double-click"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"total":100}`, "double-click"))

	if inner.Code != http.StatusConflict {
		t.Fatalf("expected in-flight retry to get 409, got %d", inner.Code)
	}
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first request to complete, got %d", first.Code)
	}

	replayed := httptest.NewRecorder()
	handler.ServeHTTP(replayed, orderRequest(`{"total":100}`, "double-click"))
	if replayed.Code != http.StatusCreated || replayed.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected completed order to replay, got %d", replayed.Code)
	}
}
