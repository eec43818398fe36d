package gcs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticToken(token string) *tokenSource {
	return &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		return token, time.Now().Add(time.Hour), nil
	}}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		httpClient:    srv.Client(),
		baseURL:       srv.URL,
		defaultBucket: "mks-products",
		tokenSource:   staticToken("tok"),
	}
}

func TestListObjectsFollowsPages(t *testing.T) {
	var (
		mu     sync.Mutex
		tokens []string
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/storage/v1/b/mks-products/o", r.URL.Path)

		mu.Lock()
		tokens = append(tokens, r.URL.Query().Get("pageToken"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageToken") {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]string{
					{"name": "products/a.jpg", "timeCreated": "2025-03-01T10:00:00.000Z", "size": "2048"},
				},
				"nextPageToken": "p2",
			})
		case "p2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]string{
					{"name": "products/b.jpg", "timeCreated": "2025-03-02T10:00:00Z"},
				},
			})
		}
	}))

	objects, err := client.ListObjects(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "products/a.jpg", objects[0].Name)
	assert.EqualValues(t, 2048, objects[0].Size)
	assert.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), objects[1].Created.UTC())
	assert.Equal(t, []string{"", "p2"}, tokens)
}

func TestListObjectsSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"no list permission"}}`))
	}))

	_, err := client.ListObjects(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no list permission")
	assert.False(t, IsNotFound(err))
}

func TestDeleteObjectEscapesName(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.DeleteObject(context.Background(), "", "products/old image.jpg"))
	assert.True(t, strings.HasSuffix(gotPath, "/o/products%2Fold%20image.jpg"), gotPath)
}

func TestDeleteObjectNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	}))

	err := client.DeleteObject(context.Background(), "", "gone.jpg")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestPingRequiresBucket(t *testing.T) {
	client := &Client{tokenSource: staticToken("tok")}
	require.Error(t, client.Ping(context.Background()))

	var nilClient *Client
	require.Error(t, nilClient.Ping(context.Background()))
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	calls := 0
	ts := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		calls++
		return "t", time.Now().Add(30 * time.Second), nil
	}}
	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "tokens within a minute of expiry are refreshed")

	calls = 0
	ts = staticToken("t")
	ts.fetch = func(context.Context) (string, time.Time, error) {
		calls++
		return "t", time.Now().Add(time.Hour), nil
	}
	for i := 0; i < 3; i++ {
		_, err = ts.Token(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/products/a.jpg", PublicURL("https://cdn.example.com/", "/products/a.jpg"))
}
