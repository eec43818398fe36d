package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mksagencies/storefront-backend/api/middleware"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

var testLogger = logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

type requestOption func(*http.Request) *http.Request

func withClaims(claims *pkgauth.Claims) requestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(middleware.WithClaims(r.Context(), claims))
	}
}

func withClientIP(ip string) requestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(middleware.WithClientIP(r.Context(), ip))
	}
}

func withURLParam(key, value string) requestOption {
	return func(r *http.Request) *http.Request {
		rc, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
		if rc == nil {
			rc = chi.NewRouteContext()
		}
		rc.URLParams.Add(key, value)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
	}
}

func do(t *testing.T, h http.Handler, method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		req = opt(req)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", resp.Body.String(), err)
	}
	return body
}

func fmtBody(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
