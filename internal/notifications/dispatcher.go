package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mksagencies/storefront-backend/pkg/config"
)

// Dispatcher delivers a notification to the email transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// HTTPDispatcher posts the payload to the mailer at {baseURL}/send/{type}.
type HTTPDispatcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDispatcher(cfg config.NotificationsConfig, client *http.Client) (*HTTPDispatcher, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.EmailServerURL), "/")
	if base == "" {
		return nil, fmt.Errorf("email server url is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPDispatcher{baseURL: base, client: client}, nil
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if !n.Type.IsValid() {
		return fmt.Errorf("unknown notification type %q", n.Type)
	}
	body, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", n.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/send/"+n.Type.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", n.Type, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", n.Type, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send %s: mailer responded %d", n.Type, resp.StatusCode)
	}
	return nil
}
