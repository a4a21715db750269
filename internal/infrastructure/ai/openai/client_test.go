package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wayfarer/v2/internal/ports/outbound"
)

const planJSON = `{
  "title": "Malaga in a day",
  "description": "Old town highlights",
  "days": [
    {
      "dayNumber": 1,
      "title": "Centro",
      "activities": [
        {
          "time": "10:00 AM",
          "placeName": "Alcazaba",
          "description": "Moorish fortress",
          "type": "VISIT",
          "coordinates": {"lat": 36.7213, "lng": -4.4158}
        },
        {
          "time": "1:00 PM",
          "placeName": "El Pimpi",
          "type": "FOOD"
        }
      ]
    }
  ]
}`

func completionServer(t *testing.T, content string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := chatCompletionResponse{
			Choices: []choice{{Message: message{Role: "assistant", Content: content}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeneratePlanMissingCredentials(t *testing.T) {
	client := NewClient(Config{}, zaptest.NewLogger(t))
	_, err := client.GeneratePlan(context.Background(), outbound.PlanRequest{Location: "Malaga", DayCount: 1})
	assert.ErrorIs(t, err, outbound.ErrMissingCredentials)
}

func TestGeneratePlanDecodesResponse(t *testing.T) {
	srv := completionServer(t, planJSON, http.StatusOK)
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zaptest.NewLogger(t))
	plan, err := client.GeneratePlan(context.Background(), outbound.PlanRequest{Location: "Malaga", DayCount: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, "Malaga in a day", plan.Title)
	assert.Equal(t, "en", plan.Language)
	require.Len(t, plan.Days, 1)
	require.Len(t, plan.Days[0].Activities, 2)
	require.NotNil(t, plan.Days[0].Activities[0].Coordinates)
	assert.InDelta(t, 36.7213, plan.Days[0].Activities[0].Coordinates.Lat, 1e-9)
}

func TestGeneratePlanStripsCodeFences(t *testing.T) {
	srv := completionServer(t, "Here is your plan:\n```json\n"+planJSON+"\n```", http.StatusOK)
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zaptest.NewLogger(t))
	plan, err := client.GeneratePlan(context.Background(), outbound.PlanRequest{Location: "Malaga", DayCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "Malaga in a day", plan.Title)
}

func TestGeneratePlanUpstreamError(t *testing.T) {
	srv := completionServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := client.GeneratePlan(context.Background(), outbound.PlanRequest{Location: "Malaga", DayCount: 1})
	assert.Error(t, err)
}

func TestGeneratePlanRejectsEmptyItinerary(t *testing.T) {
	srv := completionServer(t, `{"title": "Empty", "days": []}`, http.StatusOK)
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := client.GeneratePlan(context.Background(), outbound.PlanRequest{Location: "Malaga", DayCount: 1})
	assert.Error(t, err)
}
