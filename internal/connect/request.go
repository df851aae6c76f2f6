// Package connect is the uniform contract shared by all provider adapters:
// a request executor with timeout and single-retry-on-timeout semantics, and
// a sequential batch orchestrator with inter-chunk delays and partial-failure
// aggregation. Adapters declare their limits; connect enforces them.
package connect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request is a provider-bound HTTP request in normalized form. Body is
// JSON-encoded when set; Form takes precedence and is form-encoded (used by
// OAuth token endpoints only).
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   any
	Form   url.Values
}

// Response is the normalized result of a successful provider call. The
// executor guarantees StatusCode < 300; failing statuses become errors before
// a Response is returned.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding provider response: %w", err)
	}
	return nil
}
