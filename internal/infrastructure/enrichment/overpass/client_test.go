package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wayfarer/v2/internal/domain/geo"
)

func TestNearbyStopPicksClosestNamedElement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("data"), "bus_stop")
		w.Write([]byte(`{
			"elements": [
				{"lat": 36.7220, "lon": -4.4160, "tags": {"name": "Alcazabilla"}},
				{"lat": 36.7214, "lon": -4.4159, "tags": {"name": "Parque Norte"}},
				{"lat": 36.7215, "lon": -4.4157, "tags": {}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	stop, err := client.NearbyStop(context.Background(), geo.Coordinate{Lat: 36.7213, Lng: -4.4158}, 300)
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.Equal(t, "Parque Norte", stop.Name)
	assert.Less(t, stop.Distance, 50.0)
}

func TestNearbyStopEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	stop, err := client.NearbyStop(context.Background(), geo.Coordinate{Lat: 36.7213, Lng: -4.4158}, 300)
	require.NoError(t, err)
	assert.Nil(t, stop)
}

func TestNearbyStopUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	_, err := client.NearbyStop(context.Background(), geo.Coordinate{Lat: 36.7213, Lng: -4.4158}, 300)
	assert.Error(t, err)
}
