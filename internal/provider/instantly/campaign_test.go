package instantly_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/domain"
	"github.com/fabotse/tdec-prospect-sub000/internal/provider/instantly"
	"github.com/fabotse/tdec-prospect-sub000/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, server *httptest.Server) *instantly.Client {
	t.Helper()

	cfg := config.InstantlyConfig{
		APIURL:             server.URL,
		ChunkSize:          1000,
		RequestDelayMillis: 0,
	}
	client, err := instantly.New(cfg, time.Second, "test-api-key", server.Client())
	require.NoError(t, err)

	return client
}

func TestNewRejectsBlankAPIKey(t *testing.T) {
	_, err := instantly.New(config.InstantlyConfig{APIURL: "http://unused"}, time.Second, "   ", nil)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindCredential))
}

func TestCreateCampaignMapsSequence(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/campaigns", r.URL.Path)
		require.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		testhelpers.ReadJSON(t, r, &captured)
		testhelpers.WriteJSON(w, map[string]string{"id": "cmp-42"})
	}))
	defer server.Close()

	client := newClient(t, server)

	id, err := client.CreateCampaign(context.Background(), domain.Campaign{
		Name: "Q3 outbound",
		Steps: []domain.SequenceStep{
			{Subject: "Intro", Body: "Hi {{first_name}},\nquick one.\n\nBest", DelayDays: 0},
			{Subject: "Bump", Body: "Any thoughts?", DelayDays: 3},
			{Subject: "Last try", Body: "Closing the loop.", DelayDays: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cmp-42", id)

	sequences := captured["sequences"].([]any)
	steps := sequences[0].(map[string]any)["steps"].([]any)
	require.Len(t, steps, 3)

	// internal per-step waits [0,3,5] become forward delays [3,5,0]
	assert.EqualValues(t, 3, steps[0].(map[string]any)["delay"])
	assert.EqualValues(t, 5, steps[1].(map[string]any)["delay"])
	assert.EqualValues(t, 0, steps[2].(map[string]any)["delay"])

	variant := steps[0].(map[string]any)["variants"].([]any)[0].(map[string]any)
	assert.Equal(t, "Intro", variant["subject"])
	assert.Equal(t, "<p>Hi {{first_name}},<br>quick one.</p><p>Best</p>", variant["body"])
}

func TestGetCampaignMapsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/campaigns/cmp-42", r.URL.Path)
		testhelpers.WriteJSON(w, map[string]any{
			"name": "Q3 outbound",
			"sequences": []map[string]any{{
				"steps": []map[string]any{
					{"type": "email", "delay": 3, "variants": []map[string]string{{"subject": "Intro", "body": "<p>Hi<br>there</p><p>Best</p>"}}},
					{"type": "email", "delay": 0, "variants": []map[string]string{{"subject": "Bump", "body": "<p>Any thoughts?</p>"}}},
				},
			}},
		})
	}))
	defer server.Close()

	client := newClient(t, server)

	campaign, err := client.GetCampaign(context.Background(), "cmp-42")
	require.NoError(t, err)

	require.Len(t, campaign.Steps, 2)
	assert.Equal(t, 0, campaign.Steps[0].DelayDays)
	assert.Equal(t, 3, campaign.Steps[1].DelayDays, "forward delay of the prior step becomes this step's wait")
	assert.Equal(t, "Hi\nthere\n\nBest", campaign.Steps[0].Body)
}

func TestCreateCampaignTranslatesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newClient(t, server)

	_, err := client.CreateCampaign(context.Background(), domain.Campaign{Name: "x"})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindForbidden))
}
