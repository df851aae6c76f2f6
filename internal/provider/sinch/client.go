// Package sinch adapts the internal model to the Sinch SMS gateway. Unlike
// the key-based providers it authenticates per call with an OAuth2 bearer
// obtained from a shared token source, so a multi-chunk send reuses one
// exchanged token and recovers transparently from a mid-batch token
// rejection.
package sinch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/credential"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
	"github.com/fabotse/tdec-prospect-sub000/internal/oauth"
)

const providerName = "Sinch"

type Client struct {
	exec      *connect.Executor
	baseURL   string
	cred      credential.Credential
	tokens    *oauth.Source
	chunkSize int
	delay     time.Duration
}

// New builds a client for one tenant's id:secret pair. The token source is
// shared across clients so the fingerprint-keyed cache outlives any single
// request.
func New(cfg config.SinchConfig, timeout time.Duration, rawCredentials string, tokens *oauth.Source, httpClient *http.Client) (*Client, error) {
	cred, err := credential.ParseClientCredentials(providerName, rawCredentials)
	if err != nil {
		return nil, err
	}

	return &Client{
		exec:      connect.NewExecutor(providerName, httpClient, timeout),
		baseURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		cred:      cred,
		tokens:    tokens,
		chunkSize: cfg.ChunkSize,
		delay:     time.Duration(cfg.RequestDelayMillis) * time.Millisecond,
	}, nil
}

type wireMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type wireBatchRequest struct {
	Messages []wireMessage `json:"messages"`
}

type wireBatchResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// SendMessages delivers messages through the batch endpoint, chunked to the
// gateway's batch limit. Messages without a recipient are dropped before the
// wire.
func (c *Client) SendMessages(ctx context.Context, messages []domain.Message) (connect.BatchResult, error) {
	opts := connect.BatchOptions[domain.Message]{
		ChunkSize: c.chunkSize,
		Delay:     c.delay,
		Keep: func(m domain.Message) bool {
			return strings.TrimSpace(m.To) != ""
		},
	}

	return connect.RunBatches(ctx, providerName, messages, opts,
		func(ctx context.Context, chunk []domain.Message) (connect.BatchResult, error) {
			return c.sendMessageChunk(ctx, chunk)
		})
}

func (c *Client) sendMessageChunk(ctx context.Context, chunk []domain.Message) (connect.BatchResult, error) {
	body := wireBatchRequest{Messages: make([]wireMessage, len(chunk))}
	for i, message := range chunk {
		body.Messages[i] = wireMessage{To: message.To, Body: message.Body}
	}

	var delivered wireBatchResponse
	err := c.tokens.WithRetry(ctx, c.cred, func(ctx context.Context, bearer string) error {
		resp, err := c.exec.Do(ctx, connect.Request{
			Method: http.MethodPost,
			URL:    c.baseURL + "/batches",
			Header: http.Header{"Authorization": []string{"Bearer " + bearer}},
			Body:   body,
		})
		if err != nil {
			return err
		}
		return resp.Decode(&delivered)
	})
	if err != nil {
		return connect.BatchResult{}, err
	}

	return connect.BatchResult{
		Succeeded:      delivered.Accepted,
		Errored:        delivered.Rejected,
		TotalProcessed: len(chunk),
		RemainingQuota: -1,
	}, nil
}
