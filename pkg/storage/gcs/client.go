package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

const (
	defaultBaseURL = "https://storage.googleapis.com"
	pingTimeout    = 5 * time.Second
	listPageSize   = 1000
)

// Client talks to the Cloud Storage JSON API for one default bucket.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	defaultBucket string
	tokenSource   *tokenSource
}

// Object is the listing metadata the maintenance sweep needs.
type Object struct {
	Name    string
	Created time.Time
	Size    int64
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func closeBody(ctx context.Context, logg *logger.Logger, body io.Closer, msg string) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && logg != nil {
		logg.Warn(ctx, msg)
	}
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	var ts *tokenSource
	var err error
	switch {
	case gcp.CredentialsJSON != "":
		ts, err = newServiceAccountTokenSource(httpClient, gcp.CredentialsJSON)
	case gcp.ApplicationCredentials != "":
		bytes, readErr := os.ReadFile(gcp.ApplicationCredentials)
		if readErr != nil {
			return nil, fmt.Errorf("reading credentials file: %w", readErr)
		}
		ts, err = newServiceAccountTokenSource(httpClient, string(bytes))
	default:
		ts = newMetadataTokenSource(httpClient)
	}
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient:    httpClient,
		baseURL:       defaultBaseURL,
		defaultBucket: cfg.BucketName,
		tokenSource:   ts,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	return nil
}

// Ping lists a single object, which needs storage.objects.list like the sweep does.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.listPage(ctx, c.defaultBucket, "", 1)
	return err
}

// ListObjects returns every object in the bucket, following page tokens.
// An empty bucket name means the default bucket.
func (c *Client) ListObjects(ctx context.Context, bucket string) ([]Object, error) {
	if bucket == "" {
		bucket = c.defaultBucket
	}

	var (
		out       []Object
		pageToken string
	)
	for {
		page, err := c.listPage(ctx, bucket, pageToken, listPageSize)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			obj, err := item.object()
			if err != nil {
				return nil, fmt.Errorf("object %q: %w", item.Name, err)
			}
			out = append(out, obj)
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteObject removes one object. A missing object is reported as a
// *googleapi.Error with code 404; see IsNotFound.
func (c *Client) DeleteObject(ctx context.Context, bucket, name string) error {
	if bucket == "" {
		bucket = c.defaultBucket
	}
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.baseURL, url.PathEscape(bucket), url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodDelete, u)
	if err != nil {
		return err
	}
	defer closeBody(ctx, nil, resp.Body, "gcs: closing response body failed")
	return googleapi.CheckResponse(resp)
}

// IsNotFound reports whether err is a 404 from the storage API.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

type listResponse struct {
	Items         []listItem `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

type listItem struct {
	Name        string `json:"name"`
	TimeCreated string `json:"timeCreated"`
	Size        string `json:"size"`
}

func (i listItem) object() (Object, error) {
	created, err := time.Parse(time.RFC3339Nano, i.TimeCreated)
	if err != nil {
		return Object{}, fmt.Errorf("parse timeCreated: %w", err)
	}
	obj := Object{Name: i.Name, Created: created}
	if i.Size != "" {
		size, err := strconv.ParseInt(i.Size, 10, 64)
		if err != nil {
			return Object{}, fmt.Errorf("parse size: %w", err)
		}
		obj.Size = size
	}
	return obj, nil
}

func (c *Client) listPage(ctx context.Context, bucket, pageToken string, max int) (*listResponse, error) {
	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(max))
	q.Set("fields", "items(name,timeCreated,size),nextPageToken")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	u := fmt.Sprintf("%s/storage/v1/b/%s/o?%s", c.baseURL, url.PathEscape(bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer closeBody(ctx, nil, resp.Body, "gcs: closing response body failed")

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, err
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode object list: %w", err)
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, method, u string) (*http.Response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// PublicURL joins the public base and the object name.
func PublicURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}
