// Package apollo adapts the internal model to the Apollo B2B data platform.
// The contact endpoint takes one prospect per request, so bulk operations run
// as sequential single-item chunks with a fixed delay, and duplicate or
// invalid rejections are declared non-fatal so one bad prospect cannot abort
// a list import.
package apollo

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/credential"
)

const providerName = "Apollo"

type Client struct {
	exec      *connect.Executor
	baseURL   string
	cred      credential.Credential
	chunkSize int
	delay     time.Duration
}

func New(cfg config.ApolloConfig, timeout time.Duration, rawAPIKey string, httpClient *http.Client) (*Client, error) {
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
	return http.Header{"X-Api-Key": []string{c.cred.Key()}}
}

// isFatal is the provider-declared batch error predicate: duplicate (409)
// and validation (422) rejections apply to a single prospect and must not
// stop the rest of the import.
func isFatal(err error) bool {
	var svc *apierror.ServiceError
	if !errors.As(err, &svc) {
		return true
	}
	return svc.StatusCode != http.StatusConflict && svc.StatusCode != http.StatusUnprocessableEntity
}
