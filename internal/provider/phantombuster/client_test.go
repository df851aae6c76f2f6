package phantombuster_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
	"github.com/fabotse/tdec-prospect-sub000/internal/provider/phantombuster"
	"github.com/fabotse/tdec-prospect-sub000/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, server *httptest.Server) *phantombuster.Client {
	t.Helper()

	cfg := config.PhantombusterConfig{APIURL: server.URL}
	client, err := phantombuster.New(cfg, time.Second, "test-api-key", server.Client())
	require.NoError(t, err)

	return client
}

func TestLaunchReturnsContainerID(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/agents/launch", r.URL.Path)
		require.Equal(t, "test-api-key", r.Header.Get("X-Phantombuster-Key"))
		testhelpers.ReadJSON(t, r, &captured)
		testhelpers.WriteJSON(w, map[string]string{"containerId": "cnt-9"})
	}))
	defer server.Close()

	client := newClient(t, server)

	containerID, err := client.Launch(context.Background(), domain.ScrapeRun{
		AgentID:  "agent-1",
		Argument: map[string]any{"searchUrl": "https://example.test/q"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cnt-9", containerID)
	assert.Equal(t, "agent-1", captured["id"])
	assert.Equal(t, "https://example.test/q", captured["argument"].(map[string]any)["searchUrl"])
}

func TestFetchOutputReportsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers/fetch-output", r.URL.Path)
		require.Equal(t, "cnt-9", r.URL.Query().Get("id"))
		testhelpers.WriteJSON(w, map[string]string{"status": "running", "output": "scraping page 3"})
	}))
	defer server.Close()

	client := newClient(t, server)

	output, err := client.FetchOutput(context.Background(), "cnt-9")
	require.NoError(t, err)
	assert.False(t, output.Finished())
	assert.Equal(t, "scraping page 3", output.Text)
}

func TestFetchResultDecodesNestedObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers/fetch-result-object", r.URL.Path)
		testhelpers.WriteJSON(w, map[string]string{
			"resultObject": `[{"email":"jo@acme.test","firstName":"Jo"}]`,
		})
	}))
	defer server.Close()

	client := newClient(t, server)

	var rows []struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
	}
	require.NoError(t, client.FetchResult(context.Background(), "cnt-9", &rows))

	require.Len(t, rows, 1)
	assert.Equal(t, "jo@acme.test", rows[0].Email)
}

func TestFetchResultEmptyObjectLeavesOutUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testhelpers.WriteJSON(w, map[string]string{"resultObject": ""})
	}))
	defer server.Close()

	client := newClient(t, server)

	var rows []map[string]any
	require.NoError(t, client.FetchResult(context.Background(), "cnt-9", &rows))
	assert.Nil(t, rows)
}

func TestLaunchTranslatesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newClient(t, server)

	_, err := client.Launch(context.Background(), domain.ScrapeRun{AgentID: "agent-1"})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindRateLimited))
}
