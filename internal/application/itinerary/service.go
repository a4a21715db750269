// Package itinerary provides the application layer for the itinerary
// session lifecycle: generation, in-place edits, bounded save history.
package itinerary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/infrastructure/monitoring"
	"github.com/wayfarer/v2/internal/ports/inbound"
	"github.com/wayfarer/v2/internal/ports/outbound"
	"github.com/wayfarer/v2/pkg/errors"
)

const (
	// historyLimit caps the saved-itinerary list; oldest entries fall off.
	historyLimit = 10

	// planCacheTTL bounds how long an identical preference form reuses a
	// previous planner response.
	planCacheTTL = 30 * time.Minute
)

// SessionService implements the itinerary session use cases.
type SessionService struct {
	planner outbound.AIPlanner
	history outbound.HistoryRepository
	cache   outbound.CacheRepository
	metrics *monitoring.MetricsCollector
	limiter *rate.Limiter
	logger  *zap.Logger

	now func() time.Time

	mu            sync.Mutex
	phase         inbound.SessionPhase
	epoch         uint64
	current       *itinerary.Itinerary
	saved         []*itinerary.Itinerary
	historyLoaded bool
}

// NewSessionService creates a new itinerary session service.
func NewSessionService(
	planner outbound.AIPlanner,
	history outbound.HistoryRepository,
	cache outbound.CacheRepository,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) inbound.ItinerarySession {
	return &SessionService{
		planner: planner,
		history: history,
		cache:   cache,
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 2),
		logger:  logger.Named("itinerary-session"),
		now:     time.Now,
		phase:   inbound.PhaseForming,
	}
}

// Generate runs the preference form through the planner and installs the
// result as the current itinerary. The session stays in the generating
// phase for the duration of the call; a reset issued meanwhile discards the
// result when it arrives.
func (s *SessionService) Generate(ctx context.Context, cmd inbound.GenerateCommand) (*itinerary.Itinerary, error) {
	s.mu.Lock()
	if s.phase == inbound.PhaseGenerating {
		s.mu.Unlock()
		return nil, errors.NewAppError(errors.CodeConflict, "a generation is already in flight", "")
	}
	s.phase = inbound.PhaseGenerating
	epoch := s.epoch
	s.mu.Unlock()

	s.logger.Info("Generating itinerary",
		zap.String("location", cmd.Location),
		zap.Int("day_count", cmd.DayCount),
	)

	if !s.limiter.Allow() {
		s.abortGeneration(epoch)
		s.metrics.Generation("rate_limited", 0)
		return nil, errors.NewGenerationError(fmt.Errorf("planner request rate exceeded"))
	}

	start := s.now()
	plan, err := s.plan(ctx, cmd.Request())
	elapsed := s.now().Sub(start)
	if err != nil {
		s.abortGeneration(epoch)
		if stderrors.Is(err, outbound.ErrMissingCredentials) {
			s.metrics.Generation("unconfigured", elapsed)
			return nil, errors.NewConfigurationError("ai planner", err)
		}
		s.metrics.Generation("error", elapsed)
		return nil, errors.NewGenerationError(err)
	}
	s.metrics.Generation("ok", elapsed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Info("Discarding generation result after reset")
		return nil, errors.NewAppError(errors.CodeConflict, "session was reset during generation", "")
	}
	s.current = plan
	s.phase = inbound.PhaseViewing
	return plan.Clone(), nil
}

// abortGeneration returns the session to the form unless a reset already
// moved the epoch forward.
func (s *SessionService) abortGeneration(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch && s.phase == inbound.PhaseGenerating {
		s.phase = inbound.PhaseForming
	}
}

// plan resolves the request through the response cache, falling back to the
// planner backend on a miss. Cache failures are logged and ignored.
func (s *SessionService) plan(ctx context.Context, req outbound.PlanRequest) (*itinerary.Itinerary, error) {
	key := planCacheKey(req)

	if data, err := s.cache.Get(ctx, key); err == nil && len(data) > 0 {
		var cached itinerary.Itinerary
		if err := json.Unmarshal(data, &cached); err == nil {
			s.metrics.CacheOperation("get", "hit")
			s.logger.Debug("Planner cache hit", zap.String("key", key))
			return &cached, nil
		}
	}
	s.metrics.CacheOperation("get", "miss")

	plan, err := s.planner.GeneratePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(plan); err == nil {
		if err := s.cache.Set(ctx, key, data, planCacheTTL); err != nil {
			s.logger.Warn("Failed to cache planner response", zap.Error(err))
		}
	}
	return plan, nil
}

func planCacheKey(req outbound.PlanRequest) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return "wayfarer:plan:" + hex.EncodeToString(sum[:])
}

// Save stores the current itinerary (or the given override) at the front of
// the history. A zero timestamp marks a new entry and gets stamped now; a
// timestamp already present in the history replaces that entry and moves it
// to the front.
func (s *SessionService) Save(ctx context.Context, override *itinerary.Itinerary) (*itinerary.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := override
	if target == nil {
		target = s.current
	}
	if target == nil {
		return nil, errors.NewNotFoundError("itinerary")
	}
	if err := target.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	entry, err := s.saveLocked(ctx, target)
	if err != nil {
		return nil, err
	}
	if override == nil {
		// Keep the session on the saved snapshot so later edits carry its
		// identity.
		s.current = entry.Clone()
	}
	return entry, nil
}

// saveLocked performs the history insertion and persistence. Callers hold
// the mutex.
func (s *SessionService) saveLocked(ctx context.Context, target *itinerary.Itinerary) (*itinerary.Itinerary, error) {
	if err := s.ensureHistoryLocked(ctx); err != nil {
		return nil, err
	}

	entry := target.Clone()
	if entry.Timestamp == 0 {
		entry.Timestamp = s.now().UnixMilli()
	}

	for i, e := range s.saved {
		if e.Timestamp == entry.Timestamp {
			s.saved = append(s.saved[:i], s.saved[i+1:]...)
			break
		}
	}
	s.saved = append([]*itinerary.Itinerary{entry}, s.saved...)
	if len(s.saved) > historyLimit {
		s.saved = s.saved[:historyLimit]
	}

	if err := s.history.Replace(ctx, s.saved); err != nil {
		return nil, errors.Wrap(err, "failed to persist itinerary history")
	}
	s.metrics.ItinerarySaved()
	s.logger.Info("Itinerary saved",
		zap.String("title", entry.Title),
		zap.Int64("timestamp", entry.Timestamp),
		zap.Int("history_size", len(s.saved)),
	)
	return entry.Clone(), nil
}

// Reset discards the current itinerary and returns to the preference form.
// Any generation still in flight is invalidated.
func (s *SessionService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.current = nil
	s.phase = inbound.PhaseForming
	s.logger.Info("Session reset")
	return nil
}

// SetComment attaches a note to one activity and writes the itinerary
// through to the history in the same call.
func (s *SessionService) SetComment(ctx context.Context, dayNumber int, activityKey, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return errors.NewNotFoundError("itinerary")
	}
	day, err := s.current.Day(dayNumber)
	if err != nil {
		return errors.NewNotFoundError(fmt.Sprintf("day %d", dayNumber))
	}
	if _, err := day.ActivityByKey(activityKey); err != nil {
		return errors.NewNotFoundError(fmt.Sprintf("activity %q", activityKey))
	}

	s.current.SetComment(dayNumber, activityKey, note)

	entry, err := s.saveLocked(ctx, s.current)
	if err != nil {
		return err
	}
	s.current.Timestamp = entry.Timestamp
	return nil
}

// SetDescription updates the free-text description of the current
// itinerary. The change is kept in the session until the next save.
func (s *SessionService) SetDescription(ctx context.Context, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return errors.NewNotFoundError("itinerary")
	}
	s.current.Description = description
	return nil
}

// ReorderDay rearranges one day's activities by geographic proximity.
func (s *SessionService) ReorderDay(ctx context.Context, dayNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return errors.NewNotFoundError("itinerary")
	}
	if err := s.current.ReorderDay(dayNumber); err != nil {
		return errors.NewNotFoundError(fmt.Sprintf("day %d", dayNumber))
	}
	s.logger.Info("Day reordered by proximity", zap.Int("day", dayNumber))
	return nil
}

// Phase reports the session lifecycle phase.
func (s *SessionService) Phase() inbound.SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns a copy of the itinerary being viewed.
func (s *SessionService) Current() (*itinerary.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, errors.NewNotFoundError("itinerary")
	}
	return s.current.Clone(), nil
}

// Comment returns the note attached to one activity, or the empty string.
func (s *SessionService) Comment(dayNumber int, activityKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", errors.NewNotFoundError("itinerary")
	}
	return s.current.Comment(dayNumber, activityKey), nil
}

// History returns the saved itineraries, most recent first.
func (s *SessionService) History(ctx context.Context) ([]*itinerary.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureHistoryLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]*itinerary.Itinerary, len(s.saved))
	for i, e := range s.saved {
		out[i] = e.Clone()
	}
	return out, nil
}

// ClearHistory removes every saved itinerary.
func (s *SessionService) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = nil
	s.historyLoaded = true
	if err := s.history.Replace(ctx, nil); err != nil {
		return errors.Wrap(err, "failed to clear itinerary history")
	}
	s.logger.Info("History cleared")
	return nil
}

// ensureHistoryLocked reads the persisted history once per process; later
// calls serve the in-memory copy. Callers hold the mutex.
func (s *SessionService) ensureHistoryLocked(ctx context.Context) error {
	if s.historyLoaded {
		return nil
	}
	entries, err := s.history.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load itinerary history")
	}
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}
	s.saved = entries
	s.historyLoaded = true
	return nil
}
