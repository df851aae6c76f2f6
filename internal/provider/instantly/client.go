// Package instantly adapts the internal outreach model to the Instantly
// cold-email platform: campaign creation with multi-step sequences, and bulk
// lead upload through the batch orchestrator.
package instantly

import (
	"net/http"
	"strings"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/credential"
)

const providerName = "Instantly"

// Client is a per-request adapter instance scoped to one tenant's API key.
// It holds no state between calls.
type Client struct {
	exec      *connect.Executor
	baseURL   string
	cred      credential.Credential
	chunkSize int
	delay     time.Duration
}

// New validates the tenant API key and builds an adapter using the shared
// HTTP client.
func New(cfg config.InstantlyConfig, timeout time.Duration, rawAPIKey string, httpClient *http.Client) (*Client, error) {
	cred, err := credential.ParseAPIKey(providerName, rawAPIKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		exec:      connect.NewExecutor(providerName, httpClient, timeout),
		baseURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		cred:      cred,
		chunkSize: cfg.ChunkSize,
		delay:     time.Duration(cfg.RequestDelayMillis) * time.Millisecond,
	}, nil
}

func (c *Client) header() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + c.cred.Key()}}
}
