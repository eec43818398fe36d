package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/pkg/config"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "good-token", r.URL.Query().Get("id_token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyReturnsProfile(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"sub":"1234","aud":"client-1","email":"Asha@Example.com","email_verified":"true","name":"Asha","picture":"https://img/a.png"}`)
	v := NewTokenInfoVerifier(config.GoogleConfig{TokenInfoURL: srv.URL, ClientID: "client-1"}, srv.Client())

	profile, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "1234", profile.Subject)
	assert.Equal(t, "asha@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Asha", profile.Name)
}

func TestVerifyRejectsAudienceMismatch(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"sub":"1234","aud":"other","email":"a@b.c"}`)
	v := NewTokenInfoVerifier(config.GoogleConfig{TokenInfoURL: srv.URL, ClientID: "client-1"}, srv.Client())

	_, err := v.Verify(context.Background(), "good-token")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
}

func TestVerifyMapsClientErrorsToInvalidCredential(t *testing.T) {
	srv := newServer(t, http.StatusBadRequest, `{"error":"invalid_token"}`)
	v := NewTokenInfoVerifier(config.GoogleConfig{TokenInfoURL: srv.URL}, srv.Client())

	_, err := v.Verify(context.Background(), "good-token")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
}

func TestVerifyServerErrorIsNotCredentialError(t *testing.T) {
	srv := newServer(t, http.StatusBadGateway, `oops`)
	v := NewTokenInfoVerifier(config.GoogleConfig{TokenInfoURL: srv.URL}, srv.Client())

	_, err := v.Verify(context.Background(), "good-token")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredential))
}

func TestVerifyEmptyCredential(t *testing.T) {
	v := NewTokenInfoVerifier(config.GoogleConfig{}, nil)
	_, err := v.Verify(context.Background(), "  ")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
}
