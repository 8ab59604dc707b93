package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/api/respond"
	"calremind/internal/config"
	"calremind/internal/model"
	notifrepo "calremind/internal/repository/notification"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// notificationService abstracts the query surface the handler depends on.
type notificationService interface {
	GetStatusByID(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]model.Notification, error)
	ListAll(ctx context.Context, status string, userID uuid.NullUUID, limit, offset int) ([]model.Notification, error)
}

// Handler serves the notification query endpoints: a user's own list, a
// status lookup, and the admin view across all users.
type Handler struct {
	service notificationService
	cfg     *config.Config
}

// NewHandler creates a new Handler instance.
func NewHandler(s notificationService, cfg *config.Config) *Handler {
	return &Handler{service: s, cfg: cfg}
}

// ListMine handles GET requests for the calling user's notifications,
// filterable by status, paginated with limit/offset.
func (h *Handler) ListMine(c *ginext.Context) {
	userID, err := callerID(c)
	if err != nil {
		respond.Fail(c.Writer, http.StatusUnauthorized, err)
		return
	}

	status := c.Query("status")
	if !validStatusFilter(status) {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid status %q", status))
		return
	}

	limit, offset := pagination(c)

	notifications, err := h.service.ListForUser(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, notifications)
}

// GetStatus handles GET requests for a single notification's status.
func (h *Handler) GetStatus(c *ginext.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	status, err := h.service.GetStatusByID(c.Request.Context(), h.cfg.Retry, id)
	if err != nil {
		if errors.Is(err, notifrepo.ErrNotificationNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, status)
}

// ListAll handles GET requests for the admin view across all users,
// filterable by status and user id, paginated.
func (h *Handler) ListAll(c *ginext.Context) {
	status := c.Query("status")
	if !validStatusFilter(status) {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid status %q", status))
		return
	}

	var userFilter uuid.NullUUID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid user_id"))
			return
		}
		userFilter = uuid.NullUUID{UUID: id, Valid: true}
	}

	limit, offset := pagination(c)

	notifications, err := h.service.ListAll(c.Request.Context(), status, userFilter, limit, offset)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list all notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, notifications)
}

// callerID reads the authenticated user set by the upstream auth layer.
func callerID(c *ginext.Context) (uuid.UUID, error) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing X-User-ID header")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid X-User-ID header")
	}

	return id, nil
}

func validStatusFilter(status string) bool {
	switch status {
	case "", model.StatusPending, model.StatusSent, model.StatusFailed:
		return true
	default:
		return false
	}
}

func pagination(c *ginext.Context) (limit, offset int) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	return limit, offset
}
