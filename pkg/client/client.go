// Package client provides a Go HTTP client for the appcanvas API.
//
// Every method unwraps the response envelope: the data member is decoded into
// the result and a response with success=false becomes an [*APIError].
//
//	c := client.NewClient("http://localhost:8080")
//	c.SetAuthToken(token)
//	app, err := c.CreateApp(ctx, "Storefront", "")
//	view, err := c.GetCanvas(ctx, app.ID)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is safe for concurrent use once the token is set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8080",
// without a trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the bearer token sent with every request.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// APIError is returned for responses with success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse unwraps the envelope into target and returns its message.
func decodeResponse(resp *http.Response, target any) (string, error) {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return "", &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		return env.Message, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return env.Message, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Message, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	_, err = decodeResponse(resp, target)
	return err
}

// Health is the body of GET /api/health.
type Health struct {
	Status   string `json:"status"`
	ReadOnly bool   `json:"readOnly"`
	Time     int64  `json:"time"`
}

// Health checks the health status of the server
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
