package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/fabotse/tdec-prospect-sub000/internal/audit"
	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/connect"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
	"github.com/fabotse/tdec-prospect-sub000/internal/oauth"
	"github.com/fabotse/tdec-prospect-sub000/internal/provider/apollo"
	"github.com/fabotse/tdec-prospect-sub000/internal/provider/instantly"
	"github.com/fabotse/tdec-prospect-sub000/internal/provider/phantombuster"
	"github.com/fabotse/tdec-prospect-sub000/internal/provider/sinch"
	"github.com/rs/zerolog/log"
)

// HTTPStatuser provides HTTP status information for errors
type HTTPStatuser interface {
	Status() (int, string)
}

// credentialHeader carries the caller's provider credential: a bare API key
// or an id:secret pair, depending on the provider. It travels as a header so
// GET routes stay body-free.
const credentialHeader = "X-Provider-Credential"

// handlerDeps carries what every provider handler needs: resolved provider
// configuration, the shared instrumented HTTP client, and the process-wide
// token source for OAuth providers.
type handlerDeps struct {
	providers   config.ProvidersConfig
	client      *http.Client
	sinchTokens *oauth.Source
}

func (d handlerDeps) timeout() time.Duration {
	return time.Duration(d.providers.RequestTimeoutMillis) * time.Millisecond
}

func (d handlerDeps) instantly(r *http.Request) (*instantly.Client, error) {
	return instantly.New(d.providers.Instantly, d.timeout(), r.Header.Get(credentialHeader), d.client)
}

func (d handlerDeps) apollo(r *http.Request) (*apollo.Client, error) {
	return apollo.New(d.providers.Apollo, d.timeout(), r.Header.Get(credentialHeader), d.client)
}

func (d handlerDeps) phantombuster(r *http.Request) (*phantombuster.Client, error) {
	return phantombuster.New(d.providers.Phantombuster, d.timeout(), r.Header.Get(credentialHeader), d.client)
}

func (d handlerDeps) sinch(r *http.Request) (*sinch.Client, error) {
	return sinch.New(d.providers.Sinch, d.timeout(), r.Header.Get(credentialHeader), d.sinchTokens, d.client)
}

func handleInstantlyCreateCampaign(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Instantly", "createCampaign")

		var campaign domain.Campaign
		if !readJSON(w, r, &campaign) {
			return
		}

		client, err := deps.instantly(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		id, err := client.CreateCampaign(r.Context(), campaign)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	})
}

func handleInstantlyGetCampaign(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Instantly", "getCampaign")

		client, err := deps.instantly(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		campaign, err := client.GetCampaign(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, campaign)
	})
}

func handleInstantlyAddLeads(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Instantly", "addLeads")

		var body struct {
			Leads []domain.Lead `json:"leads"`
		}
		if !readJSON(w, r, &body) {
			return
		}

		client, err := deps.instantly(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		result, err := client.AddLeads(r.Context(), r.PathValue("id"), body.Leads)
		if err != nil {
			writeError(w, r, err)
			return
		}

		auditBatch(r, result)
		writeJSON(w, http.StatusOK, result)
	})
}

func handleApolloCreateContacts(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Apollo", "createContacts")

		var body struct {
			Leads []domain.Lead `json:"leads"`
		}
		if !readJSON(w, r, &body) {
			return
		}

		client, err := deps.apollo(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		result, err := client.CreateContacts(r.Context(), body.Leads)
		if err != nil {
			writeError(w, r, err)
			return
		}

		auditBatch(r, result)
		writeJSON(w, http.StatusOK, result)
	})
}

func handleApolloCreateAccount(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Apollo", "createAccount")

		var account domain.Account
		if !readJSON(w, r, &account) {
			return
		}

		client, err := deps.apollo(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		id, err := client.CreateAccount(r.Context(), account)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	})
}

func handleApolloSearch(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Apollo", "searchPeople")

		var query domain.SearchQuery
		if !readJSON(w, r, &query) {
			return
		}

		client, err := deps.apollo(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		leads, err := client.SearchPeople(r.Context(), query)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
	})
}

func handlePhantombusterLaunch(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Phantombuster", "launch")

		var body struct {
			Argument map[string]any `json:"argument"`
		}
		if !readJSON(w, r, &body) {
			return
		}

		client, err := deps.phantombuster(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		containerID, err := client.Launch(r.Context(), domain.ScrapeRun{
			AgentID:  r.PathValue("id"),
			Argument: body.Argument,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"containerId": containerID})
	})
}

func handlePhantombusterOutput(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Phantombuster", "fetchOutput")

		client, err := deps.phantombuster(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		output, err := client.FetchOutput(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, output)
	})
}

func handleSinchSendMessages(deps handlerDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)
		annotate(r, "Sinch", "sendMessages")

		var body struct {
			Messages []domain.Message `json:"messages"`
		}
		if !readJSON(w, r, &body) {
			return
		}

		client, err := deps.sinch(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		result, err := client.SendMessages(r.Context(), body.Messages)
		if err != nil {
			writeError(w, r, err)
			return
		}

		auditBatch(r, result)
		writeJSON(w, http.StatusOK, result)
	})
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func annotate(r *http.Request, provider, operation string) {
	entry := audit.Log(r.Context())
	entry.Provider = provider
	entry.Operation = operation
}

func auditBatch(r *http.Request, result connect.BatchResult) {
	audit.Log(r.Context()).SetBatch(
		result.Succeeded,
		result.Duplicated,
		result.Invalid,
		result.Errored,
		result.TotalProcessed,
		result.RemainingQuota,
	)
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// readJSON decodes the request body, answering 400 on malformed input.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Info().Err(err).Msg("invalid request body")
		writeJSONError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// the status line is already on the wire; logging is all that's left
		log.Info().Msgf("failed to write JSON response: %v", err)
	}
}

// ErrorResponse represents a JSON error response. Details carries partial
// batch results when a multi-chunk operation failed midway.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Details: details}); err != nil {
		log.Info().Msgf("failed to write JSON error response: %v", err)
	}
}

// writeError translates a provider failure into the inbound response and
// records it on the request's audit entry.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	audit.Log(r.Context()).Error = err.Error()

	status, message := errorStatus(err)
	log.Info().Msgf("provider operation failed: %v", err)

	var svc *apierror.ServiceError
	if errors.As(err, &svc) && len(svc.Details) > 0 {
		writeJSONError(w, status, message, svc.Details)
		return
	}

	writeJSONError(w, status, message, nil)
}

// errorStatus extracts HTTP status code and message from an error.
// Returns (StatusInternalServerError, StatusText) for errors that don't implement HTTPStatuser.
func errorStatus(err error) (int, string) {
	var statuser HTTPStatuser
	if errors.As(err, &statuser) {
		return statuser.Status()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// drainRequestBody drains the request body by reading and discarding the contents.
// This is useful to ensure the request body is fully consumed, which is important
// for connection reuse in HTTP/1 clients.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5kb max: after this we'll assume the client is broken or malicious
		// and close the connection
		io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}
