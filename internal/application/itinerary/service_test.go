// Package itinerary provides tests for the session service
package itinerary

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/infrastructure/monitoring"
	"github.com/wayfarer/v2/internal/ports/inbound"
	"github.com/wayfarer/v2/internal/ports/outbound"
	"github.com/wayfarer/v2/pkg/errors"
)

// Shared collector: prometheus collectors register globally once per test
// binary.
var testMetrics = monitoring.NewMetricsCollector(zap.NewNop())

// MockPlanner is a mock implementation of the AI planner
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) GeneratePlan(ctx context.Context, req outbound.PlanRequest) (*itinerary.Itinerary, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itinerary.Itinerary), args.Error(1)
}

// fakeHistory is an in-memory history repository
type fakeHistory struct {
	mu      sync.Mutex
	entries []*itinerary.Itinerary
	loadErr error
}

func (f *fakeHistory) Load(ctx context.Context) ([]*itinerary.Itinerary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]*itinerary.Itinerary(nil), f.entries...), nil
}

func (f *fakeHistory) Replace(ctx context.Context, entries []*itinerary.Itinerary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([]*itinerary.Itinerary(nil), entries...)
	return nil
}

// fakeCache is an in-memory byte cache
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func testPlan(title string) *itinerary.Itinerary {
	lat := 36.7213
	return &itinerary.Itinerary{
		Title: title,
		Days: []itinerary.DayPlan{
			{
				DayNumber: 1,
				Title:     "Old town",
				Activities: []itinerary.Activity{
					{
						Time:        "10:00 AM",
						PlaceName:   "Alcazaba",
						Type:        itinerary.ActivityTypeVisit,
						Coordinates: &geo.Coordinate{Lat: lat, Lng: -4.4158},
					},
					{
						Time:      "1:00 PM",
						PlaceName: "El Pimpi",
						Type:      itinerary.ActivityTypeFood,
					},
				},
			},
		},
	}
}

type sessionFixture struct {
	svc     *SessionService
	planner *MockPlanner
	history *fakeHistory
	cache   *fakeCache
}

func newSessionFixture(t *testing.T) *sessionFixture {
	planner := new(MockPlanner)
	history := &fakeHistory{}
	cache := newFakeCache()
	svc := NewSessionService(planner, history, cache, testMetrics, zaptest.NewLogger(t)).(*SessionService)
	return &sessionFixture{svc: svc, planner: planner, history: history, cache: cache}
}

func TestGenerateMovesSessionToViewing(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil)

	assert.Equal(t, inbound.PhaseForming, f.svc.Phase())

	got, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{
		Scope:    "city",
		Location: "Malaga",
		DayCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Malaga", got.Title)
	assert.Equal(t, inbound.PhaseViewing, f.svc.Phase())

	current, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "Malaga", current.Title)
}

func TestGenerateMissingCredentialsIsConfigurationError(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(nil, outbound.ErrMissingCredentials)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConfiguration))
	assert.Equal(t, inbound.PhaseForming, f.svc.Phase())
}

func TestGenerateBackendFailureIsGenerationError(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("upstream 500"))

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeGeneration))
	assert.Equal(t, inbound.PhaseForming, f.svc.Phase())
}

func TestGenerateRateLimitedIsGenerationError(t *testing.T) {
	f := newSessionFixture(t)
	f.svc.limiter = rate.NewLimiter(rate.Every(time.Hour), 0)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeGeneration))
	assert.Equal(t, inbound.PhaseForming, f.svc.Phase())
	f.planner.AssertNotCalled(t, "GeneratePlan", mock.Anything, mock.Anything)
}

func TestGenerateReusesCachedResponse(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil).Once()

	cmd := inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1}
	_, err := f.svc.Generate(context.Background(), cmd)
	require.NoError(t, err)

	require.NoError(t, f.svc.Reset(context.Background()))

	// Identical form again: the planner must not be called a second time.
	got, err := f.svc.Generate(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "Malaga", got.Title)
	f.planner.AssertNumberOfCalls(t, "GeneratePlan", 1)
}

func TestResetDuringGenerationDiscardsResult(t *testing.T) {
	f := newSessionFixture(t)
	release := make(chan struct{})
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(testPlan("Malaga"), nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
		done <- err
	}()

	assert.Eventually(t, func() bool {
		return f.svc.Phase() == inbound.PhaseGenerating
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.Reset(context.Background()))
	close(release)

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	// The stale result must not have been installed.
	assert.Equal(t, inbound.PhaseForming, f.svc.Phase())
	_, err = f.svc.Current()
	assert.Error(t, err)
}

func TestSaveAssignsTimestampAndPrepends(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.NoError(t, err)

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return stamp }

	saved, err := f.svc.Save(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, stamp.UnixMilli(), saved.Timestamp)

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, saved.Timestamp, history[0].Timestamp)
}

func TestSaveEvictsOldestBeyondLimit(t *testing.T) {
	f := newSessionFixture(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < historyLimit+1; i++ {
		f.svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, err := f.svc.Save(context.Background(), testPlan(fmt.Sprintf("Trip %d", i)))
		require.NoError(t, err)
	}

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, historyLimit)
	assert.Equal(t, "Trip 10", history[0].Title)
	// "Trip 0" fell off the end.
	assert.Equal(t, "Trip 1", history[historyLimit-1].Title)
}

func TestSaveMatchingTimestampReplacesAndMovesToFront(t *testing.T) {
	f := newSessionFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var second *itinerary.Itinerary
	for i := 0; i < 3; i++ {
		f.svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		saved, err := f.svc.Save(context.Background(), testPlan(fmt.Sprintf("Trip %d", i)))
		require.NoError(t, err)
		if i == 1 {
			second = saved
		}
	}

	second.Title = "Trip 1 revised"
	_, err := f.svc.Save(context.Background(), second)
	require.NoError(t, err)

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Trip 1 revised", history[0].Title)
	assert.Equal(t, second.Timestamp, history[0].Timestamp)
	assert.Equal(t, "Trip 2", history[1].Title)
	assert.Equal(t, "Trip 0", history[2].Title)
}

func TestSaveWithoutItinerary(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Save(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSetCommentWritesThroughToHistory(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetComment(context.Background(), 1, "Alcazaba-10:00 AM", "book tickets online"))

	note, err := f.svc.Comment(1, "Alcazaba-10:00 AM")
	require.NoError(t, err)
	assert.Equal(t, "book tickets online", note)

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "book tickets online", history[0].Comment(1, "Alcazaba-10:00 AM"))
}

func TestSetCommentSecondEditReplacesHistoryEntry(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetComment(context.Background(), 1, "Alcazaba-10:00 AM", "first"))
	require.NoError(t, f.svc.SetComment(context.Background(), 1, "Alcazaba-10:00 AM", "second"))

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "second", history[0].Comment(1, "Alcazaba-10:00 AM"))
}

func TestSetCommentUnknownActivity(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.NoError(t, err)

	err = f.svc.SetComment(context.Background(), 1, "Nowhere-9:00 AM", "note")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestReorderDayUnknownDay(t *testing.T) {
	f := newSessionFixture(t)
	f.planner.On("GeneratePlan", mock.Anything, mock.Anything).Return(testPlan("Malaga"), nil)

	_, err := f.svc.Generate(context.Background(), inbound.GenerateCommand{Scope: "city", Location: "Malaga", DayCount: 1})
	require.NoError(t, err)

	err = f.svc.ReorderDay(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestHistoryLoadsPersistedEntriesOnce(t *testing.T) {
	f := newSessionFixture(t)
	persisted := testPlan("Older trip")
	persisted.Timestamp = 42
	f.history.entries = []*itinerary.Itinerary{persisted}

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(42), history[0].Timestamp)

	// Later mutations of the repository are not re-read.
	f.history.entries = nil
	history, err = f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestClearHistory(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Save(context.Background(), testPlan("Trip"))
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearHistory(context.Background()))

	history, err := f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.history.entries)
}
