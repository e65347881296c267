// Package backend is the HTTP client for the Connect API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Version is reported in the X-Outbound-Client header.
const Version = "1.0.0"

const (
	HeaderAPIKey = "X-Outbound-Key"
	HeaderClient = "X-Outbound-Client"
	HeaderGUID   = "X-Outbound-GUID"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Platform string
	Timeout  time.Duration
}

// Client talks to the metrics, events and avatar endpoints.
type Client struct {
	baseURL  string
	apiKey   string
	platform string
	http     *http.Client
	logger   *zap.Logger
}

// New creates a backend client.
func New(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Platform == "" {
		opts.Platform = "android"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		platform: opts.Platform,
		http:     &http.Client{Timeout: opts.Timeout},
		logger:   logger.Named("backend"),
	}
}

type basicMetric struct {
	InstanceID string `json:"_oid"`
}

type uninstallTracker struct {
	InstanceID string `json:"i"`
	Revoked    bool   `json:"revoked"`
}

// Event is one analytics event in a track batch.
type Event struct {
	UserID     string         `json:"userId,omitempty"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

// Received reports that a push or IPM reached the device.
func (c *Client) Received(ctx context.Context, instanceID string) error {
	return c.post(ctx, "/i/"+c.platform+"/received", "", basicMetric{InstanceID: instanceID})
}

// Opened reports that a push or IPM was shown to the user.
func (c *Client) Opened(ctx context.Context, instanceID string) error {
	return c.post(ctx, "/i/"+c.platform+"/opened", "", basicMetric{InstanceID: instanceID})
}

// UninstallTracker answers an uninstall-tracking push.
func (c *Client) UninstallTracker(ctx context.Context, instanceID string, revoked bool) error {
	return c.post(ctx, "/i/"+c.platform+"/uninstall_tracker", "", uninstallTracker{InstanceID: instanceID, Revoked: revoked})
}

// TrackBatch sends queued events in one request. guid identifies the batch
// so a retried flush is recognisable server-side.
func (c *Client) TrackBatch(ctx context.Context, guid string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	return c.post(ctx, "/v2/track/batch", guid, events)
}

// FetchAvatar downloads the image at rawURL. The caller must close the body.
func (c *Client) FetchAvatar(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid avatar url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{Method: http.MethodGet, Path: u.Path, Code: resp.StatusCode}
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, path, guid string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if guid == "" {
		guid = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderClient, "Connect-Go/"+Version)
	req.Header.Set(HeaderGUID, guid)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: http.MethodPost, Path: path, Code: resp.StatusCode}
	}
	c.logger.Debug("request sent", zap.String("path", path), zap.String("guid", guid))
	return nil
}
