package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticChecker struct {
	status  Status
	message string
}

func (c staticChecker) Check(ctx context.Context) Check {
	return Check{Status: c.status, Message: c.message, LastChecked: time.Now()}
}

func TestOverallStatusAggregation(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Status
		want     Status
	}{
		{
			name:     "all healthy",
			checkers: map[string]Status{"db": StatusHealthy, "cache": StatusHealthy},
			want:     StatusHealthy,
		},
		{
			name:     "one degraded",
			checkers: map[string]Status{"db": StatusHealthy, "upstream": StatusDegraded},
			want:     StatusDegraded,
		},
		{
			name:     "one unhealthy wins over degraded",
			checkers: map[string]Status{"db": StatusUnhealthy, "upstream": StatusDegraded},
			want:     StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New("test", zaptest.NewLogger(t))
			for name, status := range tt.checkers {
				h.Register(name, staticChecker{status: status})
			}

			resp := h.Check(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestResultsAreCached(t *testing.T) {
	h := New("test", zaptest.NewLogger(t))
	h.SetCacheTTL(time.Minute)

	calls := 0
	h.Register("counted", checkerFunc(func(ctx context.Context) Check {
		calls++
		return Check{Status: StatusHealthy}
	}))

	h.Check(context.Background())
	h.Check(context.Background())
	assert.Equal(t, 1, calls)
}

type checkerFunc func(ctx context.Context) Check

func (f checkerFunc) Check(ctx context.Context) Check { return f(ctx) }

func TestHandlerReportsServiceUnavailable(t *testing.T) {
	h := New("1.0.0", zaptest.NewLogger(t))
	h.Register("db", staticChecker{status: StatusUnhealthy, message: "down"})

	rec := httptest.NewRecorder()
	h.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestReadinessToleratesDegraded(t *testing.T) {
	h := New("1.0.0", zaptest.NewLogger(t))
	h.Register("upstream", staticChecker{status: StatusDegraded})

	rec := httptest.NewRecorder()
	h.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPCheckerDegradesOnUnreachableEndpoint(t *testing.T) {
	c := NewHTTPChecker("http://127.0.0.1:1", 100*time.Millisecond)
	check := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, check.Status)
	assert.NotEmpty(t, check.Message)
}

func TestHTTPCheckerAcceptsReachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, time.Second)
	check := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
}
