package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Header names used on every request.
const (
	HeaderContentType    = "Content-Type"
	HeaderIdempotencyKey = "Idempotency-Key"
	ContentTypeJSON      = "application/json"
)

// Request describes one API call.
type Request struct {
	// Method is the HTTP verb.
	Method string
	// Path is relative to Config.BaseURL (e.g. "orders/12").
	Path string
	// Query holds the query parameters.
	Query url.Values
	// Body is JSON encoded when non-nil.
	Body any
	// Headers are added to the request.
	Headers map[string]string
	// IdempotencyKey is sent as the Idempotency-Key header when set.
	IdempotencyKey string
}

// encodeBody serializes the request body. A nil body yields nil.
func (r Request) encodeBody() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	if raw, ok := r.Body.([]byte); ok {
		return raw, nil
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return data, nil
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status is 2xx.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v, keeping numbers as json.Number.
// An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
