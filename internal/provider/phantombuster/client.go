// Package phantombuster adapts the internal model to the Phantombuster
// scraping platform: launch an agent, then poll its container for output and
// the structured result object.
package phantombuster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/credential"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
)

const providerName = "Phantombuster"

type Client struct {
	exec    *connect.Executor
	baseURL string
	cred    credential.Credential
}

func New(cfg config.PhantombusterConfig, timeout time.Duration, rawAPIKey string, httpClient *http.Client) (*Client, error) {
	cred, err := credential.ParseAPIKey(providerName, rawAPIKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		exec:    connect.NewExecutor(providerName, httpClient, timeout),
		baseURL: strings.TrimSuffix(cfg.APIURL, "/"),
		cred:    cred,
	}, nil
}

func (c *Client) header() http.Header {
	return http.Header{"X-Phantombuster-Key": []string{c.cred.Key()}}
}

type launchRequest struct {
	ID       string         `json:"id"`
	Argument map[string]any `json:"argument,omitempty"`
}

// Launch starts an agent run and returns the container ID tracking it.
func (c *Client) Launch(ctx context.Context, run domain.ScrapeRun) (string, error) {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/agents/launch",
		Header: c.header(),
		Body:   launchRequest{ID: run.AgentID, Argument: run.Argument},
	})
	if err != nil {
		return "", err
	}

	var launched struct {
		ContainerID string `json:"containerId"`
	}
	if err := resp.Decode(&launched); err != nil {
		return "", err
	}

	return launched.ContainerID, nil
}

// Output is one poll of a running container: its console output so far and
// whether the run has finished.
type Output struct {
	Status string `json:"status"`
	Text   string `json:"output"`
}

// Finished reports whether the container has stopped, successfully or not.
func (o Output) Finished() bool {
	return o.Status == "finished"
}

// FetchOutput polls a container's console output.
func (c *Client) FetchOutput(ctx context.Context, containerID string) (Output, error) {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/containers/fetch-output?" + url.Values{"id": []string{containerID}}.Encode(),
		Header: c.header(),
	})
	if err != nil {
		return Output{}, err
	}

	var output Output
	if err := resp.Decode(&output); err != nil {
		return Output{}, err
	}

	return output, nil
}

// FetchResult retrieves a finished container's result object, decoded into
// out. The provider double-encodes the object as a JSON string inside the
// envelope.
func (c *Client) FetchResult(ctx context.Context, containerID string, out any) error {
	resp, err := c.exec.Do(ctx, connect.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/containers/fetch-result-object?" + url.Values{"id": []string{containerID}}.Encode(),
		Header: c.header(),
	})
	if err != nil {
		return err
	}

	var envelope struct {
		ResultObject string `json:"resultObject"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	if envelope.ResultObject == "" {
		return nil
	}

	if err := json.Unmarshal([]byte(envelope.ResultObject), out); err != nil {
		return fmt.Errorf("decoding result object: %w", err)
	}
	return nil
}
