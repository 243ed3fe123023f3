// Package syncclient is the typed HTTP client for the usage monitoring
// server. It is stateless: callers supply tokens per call, and every
// method performs exactly one request with no retries. Retry policy lives
// with the callers, which know whether a failure is worth repeating.
package syncclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

const defaultRequestTimeout = 30 * time.Second

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server responded %d", e.StatusCode)
}

// IsAuthError reports whether the response indicates expired or invalid
// credentials.
func (e *Error) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// apiError is the server's error body shape.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Client talks to the usage monitoring server.
type Client struct {
	// URL is the server base URL.
	URL *url.URL
	// HTTPClient is used for all requests.
	HTTPClient *http.Client
}

// New creates a client for the given base URL.
func New(baseURL *url.URL) *Client {
	return &Client{
		URL:        baseURL,
		HTTPClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Request performs one HTTP request. A non-empty token is sent as a bearer
// Authorization header. The caller owns the response body.
func (c *Client) Request(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	endpoint, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	fullURL := c.URL.ResolveReference(endpoint)

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// Register announces this device and returns its ID and pairing code.
func (c *Client) Register(ctx context.Context, req RegisterDeviceRequest) (RegisterDeviceResponse, error) {
	var out RegisterDeviceResponse
	err := c.do(ctx, http.MethodPost, "/api/device/register", "", req, &out)
	return out, err
}

// Pair exchanges a confirmed pairing code for tokens.
func (c *Client) Pair(ctx context.Context, req PairDeviceRequest) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/device/pair", "", req, &out)
	return out, err
}

// UploadUsage sends one report date's usage batch.
func (c *Client) UploadUsage(ctx context.Context, token string, req UsageStatsRequest) (UsageStatsResponse, error) {
	var out UsageStatsResponse
	err := c.do(ctx, http.MethodPost, "/api/usage/stats", token, req, &out)
	return out, err
}

// ControlCommands fetches the pending commands for a device.
func (c *Client) ControlCommands(ctx context.Context, token, deviceID string) (ControlCommandResponse, error) {
	var out ControlCommandResponse
	err := c.do(ctx, http.MethodGet, "/api/control/"+url.PathEscape(deviceID), token, nil, &out)
	return out, err
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", refreshToken, nil, &out)
	return out, err
}

// do runs a request and decodes a 2xx JSON body into out. Non-2xx becomes
// *Error; a successful response with no body is an error because every
// endpoint returns a payload.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	resp, err := c.Request(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return readBodyAsError(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// readBodyAsError parses a server error body, tolerating bodies that are
// not the documented shape.
func readBodyAsError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body apiError
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
