// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/ports/inbound"
	"github.com/wayfarer/v2/pkg/errors"
)

// APIHandlers handles REST API requests
type APIHandlers struct {
	session  inbound.ItinerarySession
	view     inbound.ItineraryView
	validate *validator.Validate
	logger   *zap.Logger
	version  string
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(
	session inbound.ItinerarySession,
	view inbound.ItineraryView,
	logger *zap.Logger,
	version string,
) *APIHandlers {
	return &APIHandlers{
		session:  session,
		view:     view,
		validate: validator.New(),
		logger:   logger.Named("api"),
		version:  version,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// GeneratePlan handles POST /api/v1/plan
func (h *APIHandlers) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.GenerateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, errors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(cmd); err != nil {
		h.writeError(w, errors.NewValidationError(err.Error()))
		return
	}

	plan, err := h.session.Generate(r.Context(), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    plan,
		Message: "Itinerary generated",
	})
}

// GetItinerary handles GET /api/v1/itinerary
func (h *APIHandlers) GetItinerary(w http.ResponseWriter, r *http.Request) {
	view, err := h.view.Render(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	current, err := h.session.Current()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"itinerary": current,
			"view":      view,
			"phase":     h.session.Phase(),
		},
	})
}

// GetPhase handles GET /api/v1/phase
func (h *APIHandlers) GetPhase(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]interface{}{"phase": h.session.Phase()},
	})
}

// SaveItinerary handles POST /api/v1/itinerary/save
func (h *APIHandlers) SaveItinerary(w http.ResponseWriter, r *http.Request) {
	var override *itinerary.Itinerary
	if r.ContentLength > 0 {
		override = &itinerary.Itinerary{}
		if err := json.NewDecoder(r.Body).Decode(override); err != nil {
			h.writeError(w, errors.NewBadRequestError("invalid request body"))
			return
		}
	}

	saved, err := h.session.Save(r.Context(), override)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    saved,
		Message: "Itinerary saved",
	})
}

// ResetSession handles POST /api/v1/itinerary/reset
func (h *APIHandlers) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reset(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Session reset"})
}

// UpdateDescription handles PUT /api/v1/itinerary/description
func (h *APIHandlers) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.session.SetDescription(r.Context(), body.Description); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Description updated"})
}

// ReorderDay handles POST /api/v1/days/{day}/reorder
func (h *APIHandlers) ReorderDay(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	if err := h.session.ReorderDay(r.Context(), day); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Day reordered"})
}

// PutComment handles PUT /api/v1/days/{day}/comments/{activityKey}
func (h *APIHandlers) PutComment(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	activityKey := chi.URLParam(r, "activityKey")

	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.NewBadRequestError("invalid request body"))
		return
	}

	if err := h.session.SetComment(r.Context(), day, activityKey, body.Note); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Note saved"})
}

// GetComment handles GET /api/v1/days/{day}/comments/{activityKey}
func (h *APIHandlers) GetComment(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	activityKey := chi.URLParam(r, "activityKey")

	note, err := h.session.Comment(day, activityKey)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]string{"note": note},
	})
}

// UpdateViewState handles PUT /api/v1/view
func (h *APIHandlers) UpdateViewState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DayNumber   *int                             `json:"dayNumber,omitempty"`
		Filters     map[itinerary.ActivityType]*bool `json:"filters,omitempty"`
		SearchQuery *string                          `json:"searchQuery,omitempty"`
		MapExpanded *bool                            `json:"mapExpanded,omitempty"`
		ToggleKey   *string                          `json:"toggleKey,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, errors.NewBadRequestError("invalid request body"))
		return
	}

	if body.DayNumber != nil {
		h.view.SetDay(*body.DayNumber)
	}
	for t, visible := range body.Filters {
		if !t.Valid() {
			h.writeError(w, errors.NewValidationError("unknown activity type: "+string(t)))
			return
		}
		if visible != nil {
			h.view.SetFilter(t, *visible)
		}
	}
	if body.SearchQuery != nil {
		h.view.SetSearchQuery(*body.SearchQuery)
	}
	if body.MapExpanded != nil {
		h.view.SetMapExpanded(*body.MapExpanded)
	}
	if body.ToggleKey != nil {
		h.view.ToggleExpanded(*body.ToggleKey)
	}

	view, err := h.view.Render(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: view})
}

// SelectActivity handles POST /api/v1/view/select/{activityKey}
func (h *APIHandlers) SelectActivity(w http.ResponseWriter, r *http.Request) {
	h.view.SelectMarker(chi.URLParam(r, "activityKey"))

	view, err := h.view.Render(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: view})
}

// GetHistory handles GET /api/v1/history
func (h *APIHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.session.History(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: history})
}

// ClearHistory handles DELETE /api/v1/history
func (h *APIHandlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearHistory(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "History cleared"})
}

// HealthCheck handles GET /health
func (h *APIHandlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   h.version,
		},
		Message: "Service is healthy",
	})
}

func (h *APIHandlers) dayParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 {
		h.writeError(w, errors.NewBadRequestError("day must be a positive integer"))
		return 0, false
	}
	return day, true
}

// writeJSON writes a JSON response
func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps application errors onto HTTP status codes
func (h *APIHandlers) writeError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("unexpected error").WithCause(err)
	}

	// The reference id ties a client-visible error to its log line.
	reference := uuid.NewString()
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("reference", reference), zap.Error(err))
	} else {
		h.logger.Debug("Request rejected", zap.String("reference", reference), zap.Error(err))
	}

	h.writeJSON(w, appErr.StatusCode(), errors.ToErrorResponse(appErr, reference))
}
