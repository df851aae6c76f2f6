package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routesUnderTest builds the full route handler against mock provider
// backends, mirroring production wiring minus telemetry.
func routesUnderTest(t *testing.T, providers config.ProvidersConfig) http.Handler {
	t.Helper()

	cfg := config.Config{Providers: providers}
	if cfg.Providers.RequestTimeoutMillis == 0 {
		cfg.Providers.RequestTimeoutMillis = 1000
	}
	if cfg.Providers.Sinch.TokenURL == "" {
		cfg.Providers.Sinch.TokenURL = "http://localhost/unused"
	}

	handler, err := configureServerRoutes(cfg, http.DefaultClient)
	require.NoError(t, err)

	return handler
}

func doRequest(handler http.Handler, method, target, credential, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if credential != "" {
		req.Header.Set("X-Provider-Credential", credential)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	testhelpers.SetupLogger(t)
	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{ChunkSize: 1000},
	})

	w := doRequest(handler, "GET", "/healthcheck", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCreateCampaignRoute(t *testing.T) {
	testhelpers.SetupLogger(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/campaigns", r.URL.Path)
		require.Equal(t, "Bearer tenant-key", r.Header.Get("Authorization"))
		testhelpers.WriteJSON(w, map[string]string{"id": "cmp-1"})
	}))
	defer backend.Close()

	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{APIURL: backend.URL, ChunkSize: 1000},
	})

	w := doRequest(handler, "POST", "/instantly/campaigns", "tenant-key",
		`{"name":"Q3 outbound","steps":[{"subject":"Intro","body":"Hi","delayDays":0}]}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cmp-1", decodeBody(t, w)["id"])
}

func TestMissingCredentialAnswers400(t *testing.T) {
	testhelpers.SetupLogger(t)
	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{APIURL: "http://unused", ChunkSize: 1000},
	})

	w := doRequest(handler, "POST", "/instantly/campaigns", "", `{"name":"x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["error"])
}

func TestMalformedBodyAnswers400(t *testing.T) {
	testhelpers.SetupLogger(t)
	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{APIURL: "http://unused", ChunkSize: 1000},
	})

	w := doRequest(handler, "POST", "/instantly/campaigns", "tenant-key", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decodeBody(t, w)["error"])
}

func TestRateLimitedProviderAnswers429(t *testing.T) {
	testhelpers.SetupLogger(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer backend.Close()

	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{APIURL: backend.URL, ChunkSize: 1000},
	})

	w := doRequest(handler, "POST", "/instantly/campaigns", "tenant-key", `{"name":"x"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAddLeadsPartialFailureCarriesDetails(t *testing.T) {
	testhelpers.SetupLogger(t)

	requests := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		testhelpers.WriteJSON(w, map[string]any{"leads_uploaded": 2})
	}))
	defer backend.Close()

	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{APIURL: backend.URL, ChunkSize: 2},
	})

	w := doRequest(handler, "POST", "/instantly/campaigns/cmp-1/leads", "tenant-key",
		`{"leads":[{"email":"a@x.test"},{"email":"b@x.test"},{"email":"c@x.test"},{"email":"d@x.test"}]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["error"])

	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "partial batch failure must carry details")
	assert.Equal(t, float64(1), details["batchesCompleted"])
	assert.Equal(t, float64(2), details["processedBeforeFailure"])
	assert.Equal(t, float64(2), details["totalBatches"])
}

func TestAddLeadsSuccessReturnsBatchResult(t *testing.T) {
	testhelpers.SetupLogger(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testhelpers.WriteJSON(w, map[string]any{"leads_uploaded": 2, "remaining_in_plan": 98})
	}))
	defer backend.Close()

	handler := routesUnderTest(t, config.ProvidersConfig{
		Instantly: config.InstantlyConfig{APIURL: backend.URL, ChunkSize: 1000},
	})

	w := doRequest(handler, "POST", "/instantly/campaigns/cmp-1/leads", "tenant-key",
		`{"leads":[{"email":"a@x.test"},{"email":"b@x.test"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["succeeded"])
	assert.Equal(t, float64(98), body["remainingQuota"])
}

func TestSinchRouteExchangesToken(t *testing.T) {
	testhelpers.SetupLogger(t)

	tokenServer := testhelpers.SetupMockTokenServer(t)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/batches", r.URL.Path)
		require.Equal(t, "Bearer test-bearer-token-1", r.Header.Get("Authorization"))
		testhelpers.WriteJSON(w, map[string]int{"accepted": 1})
	}))
	defer backend.Close()

	handler := routesUnderTest(t, config.ProvidersConfig{
		Sinch: config.SinchConfig{
			APIURL:    backend.URL,
			TokenURL:  tokenServer.URL(),
			ChunkSize: 100,
		},
	})

	w := doRequest(handler, "POST", "/sinch/messages", "tenant-1:s3cret",
		`{"messages":[{"to":"+15550100","body":"hello"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["succeeded"])
	assert.Equal(t, 1, tokenServer.ExchangeCount)
	assert.Equal(t, "tenant-1", tokenServer.LastClientID)
}

func TestPhantombusterLaunchRoute(t *testing.T) {
	testhelpers.SetupLogger(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agents/launch", r.URL.Path)
		require.Equal(t, "tenant-key", r.Header.Get("X-Phantombuster-Key"))

		var body map[string]any
		testhelpers.ReadJSON(t, r, &body)
		require.Equal(t, "agent-1", body["id"])

		testhelpers.WriteJSON(w, map[string]string{"containerId": "cnt-5"})
	}))
	defer backend.Close()

	handler := routesUnderTest(t, config.ProvidersConfig{
		Phantombuster: config.PhantombusterConfig{APIURL: backend.URL},
	})

	w := doRequest(handler, "POST", "/phantombuster/agents/agent-1/launch", "tenant-key",
		`{"argument":{"searchUrl":"https://example.test"}}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "cnt-5", decodeBody(t, w)["containerId"])
}
