package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
)

// TokenFunc supplies the Bearer token for a single request. The session
// manager implements it so every request carries a fresh access token.
type TokenFunc func() (string, error)

// Client is a thin HTTP client for the spreadsheet values API.
// It handles Bearer token authentication, JSON marshaling, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      TokenFunc
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a spreadsheet API client. The baseURL should be the
// root URL of the backend (e.g., https://api.tripflow.example.com).
// A zero timeout defaults to 30 seconds.
func NewClient(baseURL string, token TokenFunc, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
	}
}

// BaseURL returns the backend root URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
// Failures come back as typed source errors so callers can classify them.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	op := method + " " + trimQuery(path)
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(
			ctx, method, url, bodyReader,
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		token, err := c.token()
		if err != nil {
			return &source.Error{
				Kind: source.KindAuth,
				Op:   op,
				Err:  err,
			}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &source.Error{
				Kind: source.KindNetwork,
				Op:   op,
				Err:  err,
			}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &source.Error{
				Kind: source.KindNetwork,
				Op:   op,
				Err:  readErr,
			}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == c.maxRetries {
				return &source.Error{
					Kind:    source.KindRateLimited,
					Op:      op,
					Message: fmt.Sprintf("rate limited after %d retries", c.maxRetries),
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &source.Error{
				Kind:    statusKind(resp.StatusCode),
				Op:      op,
				Message: errorMessage(resp.StatusCode, respBody),
			}
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return &source.Error{
				Kind:    source.KindValidation,
				Op:      op,
				Message: "unexpected response shape",
				Err:     err,
			}
		}

		return nil
	}

	return &source.Error{
		Kind:    source.KindRateLimited,
		Op:      op,
		Message: fmt.Sprintf("rate limited after %d retries", c.maxRetries),
	}
}

// statusKind maps an HTTP status code to an error kind.
func statusKind(code int) source.ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return source.KindAuth
	case code == http.StatusNotFound:
		return source.KindNotFound
	case code == http.StatusTooManyRequests:
		return source.KindRateLimited
	case code >= 500:
		return source.KindNetwork
	default:
		return source.KindValidation
	}
}

// errorMessage extracts the provider's error message from a failed
// response, falling back to the raw body.
func errorMessage(code int, body []byte) string {
	var envelope ErrorResponse
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", code, envelope.Error.Message)
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > 200 {
		raw = raw[:200]
	}
	if raw == "" {
		return fmt.Sprintf("status %d", code)
	}
	return fmt.Sprintf("status %d: %s", code, raw)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// trimQuery strips the query string from a path for error reporting.
func trimQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
