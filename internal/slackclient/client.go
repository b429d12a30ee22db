// Package slackclient is a small Slack Web API client covering the methods
// the bot uses.
package slackclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

var (
	// ErrDecode marks a response body that was not the JSON the method
	// returns.
	ErrDecode = errors.New("slack: response decode failed")
	// ErrInvalidRequest is returned before any request is made when a
	// required argument is missing.
	ErrInvalidRequest = errors.New("slack: invalid request")
)

// APIError is a response with ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.Method, e.Code)
}

type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

func New(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
	}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// Call posts params to a Web API method and decodes the body into out when
// the response is ok. It returns the HTTP status so callers can decide on
// retries.
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) (int, http.Header, error) {
	if c == nil || c.http == nil {
		return 0, nil, fmt.Errorf("slack client is not initialized")
	}
	if c.token == "" {
		return 0, nil, fmt.Errorf("slack token is required")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return 0, nil, fmt.Errorf("slack method is required")
	}
	if params == nil {
		params = url.Values{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, resp.Header, fmt.Errorf("slack %s http %d", method, resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, resp.Header, fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
	}
	if !env.OK {
		code := strings.TrimSpace(env.Error)
		if code == "" {
			code = "unknown_error"
		}
		return resp.StatusCode, resp.Header, &APIError{Method: method, Code: code}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, resp.Header, fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
		}
	}
	return resp.StatusCode, resp.Header, nil
}
