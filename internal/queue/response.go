package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
)

// Response is a completed HTTP exchange with its body already read.
//
// A transport failure is represented by a nil *Response, never by a Response value.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	fields     map[string]json.RawMessage
}

// NewResponse builds a Response and indexes the top-level keys of a JSON object body.
func NewResponse(status int, headers http.Header, body []byte) *Response {
	resp := &Response{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		resp.IsJSON = true
		resp.fields = fields
	} else if json.Valid(body) {
		resp.IsJSON = true
	}

	return resp
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Has reports whether the JSON object body has a top-level key named field.
func (r *Response) Has(field string) bool {
	if r == nil || r.fields == nil {
		return false
	}
	_, ok := r.fields[field]
	return ok
}

// Field decodes the top-level key field into v. It returns false if the key is missing or malformed.
func (r *Response) Field(field string, v any) bool {
	if r == nil || r.fields == nil {
		return false
	}
	raw, ok := r.fields[field]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Decode unmarshals the whole body into v.
func (r *Response) Decode(v any) error {
	if r == nil {
		return fmt.Errorf("no response")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Transport performs a single GET. It is the injection point for timeout and auth policy.
type Transport interface {
	Fetch(ctx context.Context, url string, headers http.Header) (*Response, error)
}

// HTTPTransport implements [Transport] over an [http.Client].
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport. A nil client falls back to [http.DefaultClient].
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

// Fetch performs a GET request to url with headers and returns the raw response.
func (t *HTTPTransport) Fetch(ctx context.Context, url string, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	maps.Copy(req.Header, headers)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return NewResponse(resp.StatusCode, resp.Header, body), nil
}

// TransportFunc adapts a function to [Transport].
type TransportFunc func(ctx context.Context, url string, headers http.Header) (*Response, error)

func (f TransportFunc) Fetch(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return f(ctx, url, headers)
}
