package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/api/dto"
	"calremind/internal/api/respond"
	"calremind/internal/model"
	eventrepo "calremind/internal/repository/event"
	remrepo "calremind/internal/repository/reminder"
)

// reminderService abstracts the reminder lifecycle the handler depends on.
type reminderService interface {
	Add(ctx context.Context, eventID uuid.UUID, minutesBefore int) (model.Reminder, error)
	Remove(ctx context.Context, reminderID uuid.UUID) error
}

// Handler serves reminder management endpoints.
type Handler struct {
	service   reminderService
	validator *validator.Validate
}

// NewHandler creates a new Handler instance.
func NewHandler(s reminderService, v *validator.Validate) *Handler {
	return &Handler{service: s, validator: v}
}

// Create handles POST requests adding a custom reminder to an event. Adding
// the first custom reminder retires the event's default reminder.
func (h *Handler) Create(c *ginext.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid event id"))
		return
	}

	var req dto.CreateReminderRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	rem, err := h.service.Add(c.Request.Context(), eventID, req.MinutesBefore)
	if err != nil {
		if errors.Is(err, eventrepo.ErrEventNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("event not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("event_id", eventID.String()).Msg("failed to add reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, rem)
}

// Delete handles DELETE requests removing a reminder. Removing the last
// custom reminder restores the event's default reminder.
func (h *Handler) Delete(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid reminder id"))
		return
	}

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, remrepo.ErrReminderNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("reminder not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("reminder_id", id.String()).Msg("failed to remove reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, "deleted")
}
