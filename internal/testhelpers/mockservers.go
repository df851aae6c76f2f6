// Package testhelpers provides configurable mock provider servers for
// integration-style tests.
package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockTokenServer is a configurable OAuth2 client-credentials token endpoint.
type MockTokenServer struct {
	Server *httptest.Server

	AccessToken string // token returned on success
	ExpiresIn   int    // seconds; 0 omits expires_in from the response
	StatusCode  int    // HTTP status to return (200 if not set)

	ExchangeCount    int    // number of exchange requests received
	LastClientID     string // captured client_id from last exchange
	LastClientSecret string // captured client_secret from last exchange
}

// SetupMockTokenServer creates a token endpoint that answers form-encoded
// client-credentials exchanges and tracks how often it is called.
func SetupMockTokenServer(t *testing.T) *MockTokenServer {
	t.Helper()

	mock := &MockTokenServer{
		AccessToken: "test-bearer-token",
		ExpiresIn:   3600,
		StatusCode:  http.StatusOK,
	}

	router := http.NewServeMux()

	router.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		mock.ExchangeCount++

		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mock.LastClientID = r.PostFormValue("client_id")
		mock.LastClientSecret = r.PostFormValue("client_secret")

		if mock.StatusCode != http.StatusOK {
			w.WriteHeader(mock.StatusCode)
			return
		}

		response := map[string]any{
			"access_token": fmt.Sprintf("%s-%d", mock.AccessToken, mock.ExchangeCount),
			"token_type":   "Bearer",
		}
		if mock.ExpiresIn > 0 {
			response["expires_in"] = mock.ExpiresIn
		}

		WriteJSON(w, response)
	})

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

// URL returns the token endpoint URL.
func (m *MockTokenServer) URL() string {
	return m.Server.URL + "/oauth2/token"
}

// WriteJSON is a helper function that writes a JSON response.
// It sets the Content-Type header and marshals the payload to JSON.
func WriteJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		// In test context, this should never happen with valid test data
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}

// ReadJSON decodes a request body into v, failing the test on error.
func ReadJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode request JSON: %v", err)
	}
}
