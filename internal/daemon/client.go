package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// Client talks to a calgrid daemon and satisfies store.Source.
type Client struct {
	SocketPath string
	BaseURL    string
	http       *http.Client
}

// NewClient dials the daemon over a unix socket.
func NewClient(socketPath string) *Client {
	dialer := &net.Dialer{Timeout: 2 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
		DisableCompression: true,
		DisableKeepAlives:  true,
	}
	return &Client{
		SocketPath: socketPath,
		BaseURL:    "http://unix",
		http: &http.Client{
			Transport: transport,
			Timeout:   12 * time.Second,
		},
	}
}

// NewHTTPClient talks to a daemon listening on TCP, e.g. "http://127.0.0.1:7411".
func NewHTTPClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) HealthInfo(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/healthz", &out); err != nil {
		return HealthResponse{}, err
	}
	if strings.TrimSpace(out.Status) == "" {
		out.Status = "ok"
	}
	return out, nil
}

// CheckCompatible fails with ErrIncompatibleDaemon when the daemon speaks a
// different major API version.
func (c *Client) CheckCompatible(ctx context.Context) error {
	health, err := c.HealthInfo(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errDaemonUnavailable, err)
	}
	remote := strings.TrimSpace(health.APIVersion)
	if !semver.IsValid(remote) || semver.Major(remote) != semver.Major(APIVersion) {
		return fmt.Errorf("%w: daemon %q, client %q", ErrIncompatibleDaemon, remote, APIVersion)
	}
	return nil
}

func (c *Client) FetchAll(ctx context.Context) ([]core.Record, error) {
	var out []core.Record
	if err := c.getJSON(ctx, "/v1/records", &out); err != nil {
		return nil, fmt.Errorf("daemon fetch records: %w", err)
	}
	return out, nil
}

func (c *Client) Upsert(ctx context.Context, key string, value *float64) (core.UpsertResult, error) {
	payload, err := json.Marshal(UpsertRequest{Value: value})
	if err != nil {
		return core.UpsertResult{}, fmt.Errorf("marshal daemon upsert request: %w", err)
	}
	endpoint := c.url("/v1/records/" + url.PathEscape(strings.TrimSpace(key)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return core.UpsertResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return core.UpsertResult{}, err
	}
	var out core.UpsertResult
	if err := json.Unmarshal(body, &out); err != nil {
		return core.UpsertResult{}, fmt.Errorf("decode daemon upsert response: %w", err)
	}
	if status >= 300 {
		if out.Status == "" {
			out.Status = core.UpsertStatusError
		}
		return out, fmt.Errorf("daemon upsert failed: %s: %s", http.StatusText(status), out.Message)
	}
	return out, nil
}

// Layout asks the daemon to lay out its records. Zero query fields use the
// daemon's defaults.
func (c *Client) Layout(ctx context.Context, q LayoutQuery) (LayoutResponse, error) {
	values := url.Values{}
	if q.Rows > 0 {
		values.Set("rows", strconv.Itoa(q.Rows))
	}
	if q.Width > 0 {
		values.Set("width", strconv.FormatFloat(q.Width, 'f', -1, 64))
	}
	if q.Height > 0 {
		values.Set("height", strconv.FormatFloat(q.Height, 'f', -1, 64))
	}
	if q.Mode != "" {
		values.Set("mode", q.Mode)
	}
	path := "/v1/layout"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var out LayoutResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return LayoutResponse{}, fmt.Errorf("daemon layout: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	body, status, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return responseError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	if c == nil || c.http == nil || strings.TrimSpace(c.BaseURL) == "" {
		return nil, 0, errors.New("daemon client is not configured")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read daemon response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

func responseError(status int, body []byte) error {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return fmt.Errorf("daemon status %d: %s", status, e.Message)
	}
	return fmt.Errorf("daemon status %d: %s", status, strings.TrimSpace(string(body)))
}
