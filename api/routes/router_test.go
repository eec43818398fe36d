package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/internal/auth"
	"github.com/mksagencies/storefront-backend/internal/cart"
	"github.com/mksagencies/storefront-backend/internal/orders"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/internal/session"
	"github.com/mksagencies/storefront-backend/internal/wishlist"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db/dbtest"
	"github.com/mksagencies/storefront-backend/pkg/enums"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/metrics"
)

const testSecret = "router-secret"

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

type stubAuth struct {
	auth.Service
}

func (stubAuth) AdminLogin(_ context.Context, _, passcode string) (*auth.AdminLoginResponse, error) {
	return &auth.AdminLoginResponse{Success: true, Token: "admin-token-" + passcode}, nil
}

type stubOrders struct {
	orders.Service
	creates int
}

func (s *stubOrders) CreateOrder(context.Context, orders.CreateInput) (*orders.CreateResult, error) {
	s.creates++
	return &orders.CreateResult{
		OrderID:     uuid.New(),
		OrderNumber: fmt.Sprintf("MKS-20250301-%04d", s.creates),
		Status:      enums.OrderStatusPendingVerification,
	}, nil
}

func (s *stubOrders) ListAll(context.Context, orders.ListAllInput) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func (s *stubOrders) ListForUser(context.Context, *pkgauth.Claims) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

type stubProducts struct {
	products.Service
}

func (stubProducts) List(context.Context, products.ListInput) ([]products.ProductDTO, error) {
	return []products.ProductDTO{{ID: "triphala", Slug: "triphala", Name: "Triphala"}}, nil
}

type harness struct {
	handler http.Handler
	orders  *stubOrders
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	cartSvc, err := cart.NewService(cart.NewRepository(db))
	require.NoError(t, err)
	wishSvc, err := wishlist.NewService(wishlist.NewRepository(db))
	require.NoError(t, err)
	sessions, err := session.NewFactory(cartSvc, wishSvc)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics.NewNotificationMetrics(reg)

	cfg := &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: testSecret},
	}
	ordersSvc := &stubOrders{}
	h := NewRouter(cfg, logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}), Infra{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memoryStore{data: map[string]string{}},
		Gatherer:    reg,
		Now:         func() time.Time { return testNow },
	}, Services{
		Auth:     stubAuth{},
		Orders:   ordersSvc,
		Products: stubProducts{},
		Sessions: sessions,
	})
	return &harness{handler: h, orders: ordersSvc}
}

func (h *harness) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func bearer(t *testing.T, claims pkgauth.Claims) map[string]string {
	t.Helper()
	token, err := pkgauth.Issue(testSecret, testNow, time.Hour, claims)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func jsonBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/health", "/api/health", "/health/live"} {
		resp := h.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.Code, path)
		assert.Equal(t, "ok", jsonBody(t, resp)["status"], path)
		assert.NotEmpty(t, resp.Header().Get("X-Request-Id"), path)
	}

	resp := h.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodOptions, "/api/cart", "", map[string]string{
		"Origin":                        "https://mksagencies.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Less(t, resp.Code, 300)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", resp.Header().Get("Access-Control-Max-Age"))
}

func TestPublicCatalog(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, jsonBody(t, resp)["products"], 1)
}

func TestCartRequiresToken(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Unauthorized", jsonBody(t, resp)["error"])

	resp = h.do(t, http.MethodGet, "/api/cart", "", map[string]string{"Authorization": "Bearer nonsense"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCartRoundTrip(t *testing.T) {
	h := newHarness(t)
	headers := bearer(t, pkgauth.Claims{UserID: uuid.NewString(), Email: "asha@example.com"})

	resp := h.do(t, http.MethodPost, "/api/cart/add", `{"product":{"id":"neem","name":"Neem Capsules","price":150},"quantity":2}`, headers)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = h.do(t, http.MethodGet, "/api/cart", "", headers)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, jsonBody(t, resp)["cart"], 1)

	resp = h.do(t, http.MethodDelete, "/api/cart", "", headers)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = h.do(t, http.MethodGet, "/api/cart", "", headers)
	assert.Empty(t, jsonBody(t, resp)["cart"])
}

func TestAdminTokenCannotOwnCart(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/wishlist", "", bearer(t, pkgauth.Claims{IsAdmin: true}))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = h.do(t, http.MethodGet, "/api/admin/orders", "", bearer(t, pkgauth.Claims{UserID: uuid.NewString()}))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = h.do(t, http.MethodGet, "/api/admin/orders", "", bearer(t, pkgauth.Claims{IsAdmin: true}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, jsonBody(t, resp), "orders")
}

func TestAdminLoginIsPublic(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/admin/login", `{"passcode":"letmein"}`, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, true, jsonBody(t, resp)["success"])
}

func TestCleanupWithoutBucket(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/admin/maintenance/cleanup-images", "", bearer(t, pkgauth.Claims{IsAdmin: true}))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestCreateOrderReplaysIdempotentRetry(t *testing.T) {
	h := newHarness(t)
	body := `{"items":[{"id":"p1","name":"Triphala","price":199,"quantity":1}],"isGuest":true}`
	headers := map[string]string{"Idempotency-Key": "checkout-1"}

	first := h.do(t, http.MethodPost, "/api/orders", body, headers)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := h.do(t, http.MethodPost, "/api/orders", body, headers)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, h.orders.creates)
	assert.Equal(t, jsonBody(t, first)["orderNumber"], jsonBody(t, second)["orderNumber"])

	third := h.do(t, http.MethodPost, "/api/orders", body, nil)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, h.orders.creates)
}

func TestMyOrdersRequireToken(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/orders", "", nil).Code)

	resp := h.do(t, http.MethodGet, "/api/orders", "", bearer(t, pkgauth.Claims{UserID: uuid.NewString()}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, jsonBody(t, resp), "orders")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}
