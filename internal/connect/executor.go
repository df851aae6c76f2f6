package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single provider request. Providers normally answer
// well within this; the value exists so a stalled connection cannot hold a
// batch open indefinitely.
const DefaultTimeout = 10 * time.Second

// Executor issues single provider requests. A timed-out request is retried
// exactly once; all other failures are classified and returned immediately,
// since blind retries on 4xx/5xx would amplify rate-limit violations.
type Executor struct {
	provider string
	client   *http.Client
	timeout  time.Duration
}

// NewExecutor creates an executor for the named provider. The client is
// shared across adapters (it carries the instrumented transport); a nil
// client falls back to http.DefaultClient. A zero timeout selects
// DefaultTimeout.
func NewExecutor(provider string, client *http.Client, timeout time.Duration) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{provider: provider, client: client, timeout: timeout}
}

// Provider returns the display name the executor classifies errors under.
func (e *Executor) Provider() string { return e.provider }

// Do executes the request. Statuses >= 300 are failures regardless of body
// content and are translated into a ServiceError.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := e.attempt(ctx, req)
	if err == nil {
		return resp, nil
	}

	svc := apierror.Classify(e.provider, err)
	if svc.Kind != apierror.KindTimeout {
		return nil, svc
	}

	// single retry on timeout only
	zerolog.Ctx(ctx).Warn().
		Str("provider", e.provider).
		Str("url", req.URL).
		Msg("request timed out, retrying once")

	resp, err = e.attempt(ctx, req)
	if err != nil {
		return nil, apierror.Classify(e.provider, err)
	}
	return resp, nil
}

func (e *Executor) attempt(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode >= 300 {
		return nil, apierror.FromStatus(e.provider, httpResp.StatusCode, data)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	default:
		return nil, "", nil
	}
}
