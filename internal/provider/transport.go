package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPResponse is what a Doer hands back: the status, the raw text and the
// body as JSON when it parses.
type HTTPResponse struct {
	StatusCode int
	Text       string
	// JSON is nil when the body is not valid JSON.
	JSON json.RawMessage
}

// DecodeJSON unmarshals the parsed body into v.
func (r *HTTPResponse) DecodeJSON(v any) error {
	if r.JSON == nil {
		return fmt.Errorf("response body is not JSON")
	}
	return json.Unmarshal(r.JSON, v)
}

// Doer performs one HTTP exchange. It is the only I/O primitive the
// OpenAI-compatible providers use, so tests can swap it out.
type Doer interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body any) (*HTTPResponse, error)
}

// HTTPTransport is the default Doer backed by net/http.
type HTTPTransport struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPTransport wraps client. A positive requestsPerMinute paces calls
// with a token bucket; waiting respects the caller's context.
func NewHTTPTransport(client *http.Client, requestsPerMinute int) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	t := &HTTPTransport{client: client}
	if requestsPerMinute > 0 {
		t.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return t
}

// Do implements Doer.
func (t *HTTPTransport) Do(ctx context.Context, method, url string, headers map[string]string, body any) (*HTTPResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &HTTPResponse{StatusCode: resp.StatusCode, Text: string(respBody)}
	if json.Valid(respBody) {
		out.JSON = json.RawMessage(respBody)
	}
	return out, nil
}
