// Package google verifies Google Sign-In ID tokens through the tokeninfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/mksagencies/storefront-backend/pkg/config"
)

const defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// ErrInvalidCredential is returned when Google rejects the ID token or it was
// issued for another client.
var ErrInvalidCredential = errors.New("invalid google credential")

// Profile is the subset of tokeninfo claims the storefront uses.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type tokenInfo struct {
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier checks an ID token and returns the Google profile behind it.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Profile, error)
}

// TokenInfoVerifier calls Google's tokeninfo endpoint.
type TokenInfoVerifier struct {
	endpoint string
	clientID string
	http     *http.Client
}

func NewTokenInfoVerifier(cfg config.GoogleConfig, httpClient *http.Client) *TokenInfoVerifier {
	endpoint := strings.TrimSpace(cfg.TokenInfoURL)
	if endpoint == "" {
		endpoint = defaultTokenInfoURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &TokenInfoVerifier{
		endpoint: endpoint,
		clientID: strings.TrimSpace(cfg.ClientID),
		http:     httpClient,
	}
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, credential string) (Profile, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Profile{}, ErrInvalidCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint+"?id_token="+url.QueryEscape(credential), nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build tokeninfo request: %w", err)
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 {
			return Profile{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		return Profile{}, fmt.Errorf("tokeninfo: %w", err)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, fmt.Errorf("decode tokeninfo: %w", err)
	}
	if info.Email == "" || info.Sub == "" {
		return Profile{}, ErrInvalidCredential
	}
	if v.clientID != "" && info.Aud != v.clientID {
		return Profile{}, fmt.Errorf("%w: audience mismatch", ErrInvalidCredential)
	}

	return Profile{
		Subject:       info.Sub,
		Email:         strings.ToLower(info.Email),
		EmailVerified: info.EmailVerified == "true",
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
