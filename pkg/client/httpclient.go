package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"lodgr/pkg/middleware"
	"net/http"
	"time"
)

const (
	DefaultAttemptTimeout = 300 * time.Millisecond
	DefaultMaxRetries     = 2
	DefaultRetryBackoff   = 50 * time.Millisecond
)

type Options struct {
	// AttemptTimeout bounds each try; the caller's context bounds the call.
	AttemptTimeout time.Duration
	// MaxRetries of 0 means DefaultMaxRetries; negative disables retries.
	MaxRetries     int
	RetryBackoff   time.Duration
	ClientID       string
	SigningSecret  string
	HTTPClient     *http.Client
}

func (o Options) withDefaults() Options {
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = DefaultMaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	return o
}

type HttpClient struct {
	BaseURL string
	opts    Options
}

func NewHttpClient(baseURL string, opts Options) *HttpClient {
	return &HttpClient{
		BaseURL: baseURL,
		opts:    opts.withDefaults(),
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// APIError is a non-2xx answer from the coordinator.
type APIError struct {
	StatusCode int
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("coordinator returned %d", e.StatusCode)
	}
	return fmt.Sprintf("coordinator returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type request struct {
	method  string
	path    string
	body    any
	headers map[string]string
	retry   bool
}

// do sends req and decodes a {"data": ...} envelope into out. Transient
// failures are retried only when req.retry is set.
func (c *HttpClient) do(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	attempts := 1
	if req.retry {
		attempts += c.opts.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			case <-time.After(c.opts.RetryBackoff * time.Duration(attempt)):
			}
		}

		resp, err := c.attempt(ctx, req, payload)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(ctx.Err(), err)
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return decodeEnvelope(resp, out)
		}

		apiErr := decodeAPIError(resp)
		if !isTransientStatus(resp.StatusCode) {
			return apiErr
		}
		lastErr = apiErr
	}

	return lastErr
}

func (c *HttpClient) attempt(ctx context.Context, req request, payload []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.BaseURL+req.path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.opts.ClientID != "" {
		httpReq.Header.Set(middleware.ClientIDHeader, c.opts.ClientID)
	}
	if c.opts.SigningSecret != "" {
		httpReq.Header.Set(middleware.SignatureHeader,
			middleware.Sign(c.opts.SigningSecret, req.method, httpReq.URL.RequestURI(), payload))
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func decodeEnvelope(resp *Response, out any) error {
	if out == nil {
		return nil
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func decodeAPIError(resp *Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := resp.DecodeJSON(apiErr); err != nil {
		apiErr.Message = string(resp.Body)
	}
	return apiErr
}

func (c *HttpClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		err := c.do(ctx, request{method: http.MethodGet, path: "/health"}, nil)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v: %w", maxWait, err)
		case <-ticker.C:
		}
	}
}
