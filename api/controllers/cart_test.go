package controllers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/internal/cart"
	"github.com/mksagencies/storefront-backend/internal/session"
	"github.com/mksagencies/storefront-backend/internal/wishlist"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/db/dbtest"
)

func withSessionFor(t *testing.T, claims *pkgauth.Claims) requestOption {
	t.Helper()
	db := dbtest.Open(t)
	cartSvc, err := cart.NewService(cart.NewRepository(db))
	require.NoError(t, err)
	wishSvc, err := wishlist.NewService(wishlist.NewRepository(db))
	require.NoError(t, err)
	factory, err := session.NewFactory(cartSvc, wishSvc)
	require.NoError(t, err)
	s, err := factory.Open(claims)
	require.NoError(t, err)
	return func(r *http.Request) *http.Request {
		return r.WithContext(session.WithSession(r.Context(), s))
	}
}

func cartLines(t *testing.T, sess requestOption) []any {
	t.Helper()
	resp := do(t, GetCart(testLogger), http.MethodGet, "/api/cart", "", sess)
	require.Equal(t, http.StatusOK, resp.Code)
	lines, ok := decodeBody(t, resp)["cart"].([]any)
	require.True(t, ok, resp.Body.String())
	return lines
}

func TestCartRequiresSession(t *testing.T) {
	resp := do(t, GetCart(testLogger), http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, resp)["error"])
}

func TestCartAddAccumulatesAndAcks(t *testing.T) {
	sess := withSessionFor(t, &pkgauth.Claims{UserID: uuid.NewString()})
	body := `{"product":{"id":"ashwagandha","name":"Ashwagandha Churna","price":249},"quantity":2}`

	for i := 0; i < 2; i++ {
		resp := do(t, AddToCart(testLogger), http.MethodPost, "/api/cart/add", body, sess)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, map[string]any{"success": true}, decodeBody(t, resp))
	}

	lines := cartLines(t, sess)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 4, lines[0].(map[string]any)["quantity"])
}

func TestCartUpdateToZeroRemovesLine(t *testing.T) {
	sess := withSessionFor(t, &pkgauth.Claims{GuestID: uuid.NewString(), IsGuest: true})
	add := `{"product":{"id":"brahmi","name":"Brahmi Vati","price":120},"quantity":1}`
	require.Equal(t, http.StatusOK, do(t, AddToCart(testLogger), http.MethodPost, "/api/cart/add", add, sess).Code)

	resp := do(t, UpdateCartItem(testLogger), http.MethodPut, "/api/cart/update", `{"productId":"brahmi","quantity":0}`, sess)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, cartLines(t, sess))

	resp = do(t, UpdateCartItem(testLogger), http.MethodPut, "/api/cart/update", `{"productId":"brahmi","quantity":3}`, sess)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCartRemoveRequiresProductID(t *testing.T) {
	sess := withSessionFor(t, &pkgauth.Claims{UserID: uuid.NewString()})
	resp := do(t, RemoveFromCart(testLogger), http.MethodPost, "/api/cart/remove", `{}`, sess)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartSyncKeepsServerQuantity(t *testing.T) {
	sess := withSessionFor(t, &pkgauth.Claims{UserID: uuid.NewString()})
	add := `{"product":{"id":"triphala","name":"Triphala","price":199},"quantity":5}`
	require.Equal(t, http.StatusOK, do(t, AddToCart(testLogger), http.MethodPost, "/api/cart/add", add, sess).Code)

	sync := `{"items":[
		{"id":"triphala","name":"Triphala","price":199,"quantity":1},
		{"id":"neem","name":"Neem Capsules","price":150,"quantity":2}]}`
	resp := do(t, SyncCart(testLogger), http.MethodPost, "/api/cart/sync", sync, sess)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	quantities := map[string]float64{}
	for _, raw := range body["cart"].([]any) {
		line := raw.(map[string]any)
		quantities[line["product"].(map[string]any)["id"].(string)] = line["quantity"].(float64)
	}
	assert.Equal(t, map[string]float64{"triphala": 5, "neem": 2}, quantities)
}

func TestCartClear(t *testing.T) {
	sess := withSessionFor(t, &pkgauth.Claims{UserID: uuid.NewString()})
	add := `{"product":{"id":"tulsi","name":"Tulsi Drops","price":180}}`
	require.Equal(t, http.StatusOK, do(t, AddToCart(testLogger), http.MethodPost, "/api/cart/add", add, sess).Code)

	resp := do(t, ClearCart(testLogger), http.MethodDelete, "/api/cart", "", sess)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, cartLines(t, sess))
}

func TestWishlistSyncIsUnion(t *testing.T) {
	sess := withSessionFor(t, &pkgauth.Claims{UserID: uuid.NewString()})
	add := `{"product":{"id":"tulsi","name":"Tulsi Drops","price":180}}`
	resp := do(t, AddToWishlist(testLogger), http.MethodPost, "/api/wishlist/add", add, sess)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	sync := `{"items":[{"id":"tulsi","name":"Tulsi Drops","price":180},{"id":"amla","name":"Amla Juice","price":220}]}`
	resp = do(t, SyncWishlist(testLogger), http.MethodPost, "/api/wishlist/sync", sync, sess)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["wishlist"], 2)

	resp = do(t, RemoveFromWishlist(testLogger), http.MethodPost, "/api/wishlist/remove", `{"productId":"tulsi"}`, sess)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, GetWishlist(testLogger), http.MethodGet, "/api/wishlist", "", sess)
	assert.Len(t, decodeBody(t, resp)["wishlist"], 1)
}
