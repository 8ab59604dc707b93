package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"calremind/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoNotificationsFound = errors.New("no notifications found")
)

// uniqueViolation is the Postgres error code raised when an insert hits the
// (company_id, event_id, reminder_id, user_id) unique index.
const uniqueViolation = "23505"

const notificationColumns = `
	id, company_id, event_id, reminder_id, user_id,
	scheduled_at, status, in_app_sent_at, email_sent_at,
	failure_reason, attempts, created_at, updated_at
`

// Repository provides methods to interact with the notifications table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new notification and returns it with its generated ID.
//
// A unique-constraint violation on the scheduling tuple is not an error: it
// means the obligation already exists, and Create returns (nil, nil). This is
// the mechanism idempotent scheduling relies on.
func (r *Repository) Create(ctx context.Context, n model.Notification) (*model.Notification, error) {
	query := `
		INSERT INTO notifications (
		    company_id, event_id, reminder_id, user_id, scheduled_at, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at;
    `

	err := r.db.QueryRowContext(
		ctx, query, n.CompanyID, n.EventID, n.ReminderID, n.UserID, n.ScheduledAt, model.StatusPending,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	n.Status = model.StatusPending

	return &n, nil
}

// GetPending retrieves pending notifications due at or before the given time,
// earliest first.
func (r *Repository) GetPending(ctx context.Context, before time.Time) ([]model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC;
    `

	rows, err := r.db.QueryContext(ctx, query, model.StatusPending, before)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetByUser retrieves a user's notifications, newest scheduled first. An
// empty status selects all statuses.
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY scheduled_at DESC
		LIMIT $3 OFFSET $4;
    `

	rows, err := r.db.QueryContext(ctx, query, userID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for user: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetAll retrieves notifications across all users for the admin view,
// optionally filtered by status and user.
func (r *Repository) GetAll(ctx context.Context, status string, userID uuid.NullUUID, limit, offset int) ([]model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE ($1 = '' OR status = $1) AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY scheduled_at DESC
		LIMIT $3 OFFSET $4;
    `

	rows, err := r.db.QueryContext(ctx, query, status, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetStatusByID retrieves the status of a notification by its ID.
func (r *Repository) GetStatusByID(ctx context.Context, id uuid.UUID) (string, error) {
	query := `
		SELECT status
		FROM notifications
		WHERE id = $1;
    `

	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotificationNotFound
		}

		return "", fmt.Errorf("failed to get notification status: %w", err)
	}

	return status, nil
}

// MarkChannelSent records a successful delivery on one channel and flips the
// status to sent once both channel timestamps are set. The whole
// read-modify-write happens in a single statement, so two concurrent channel
// completions cannot lose an update. It returns the resulting status.
func (r *Repository) MarkChannelSent(ctx context.Context, id uuid.UUID, channel string) (string, error) {
	var column, other string
	switch channel {
	case model.ChannelInApp:
		column, other = "in_app_sent_at", "email_sent_at"
	case model.ChannelEmail:
		column, other = "email_sent_at", "in_app_sent_at"
	default:
		return "", fmt.Errorf("unknown channel %q", channel)
	}

	query := `
		UPDATE notifications
		SET ` + column + ` = COALESCE(` + column + `, now()),
		    status = CASE WHEN ` + other + ` IS NOT NULL THEN 'sent' ELSE status END,
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING status;
    `

	var status string
	err := r.db.QueryRowContext(ctx, query, id, model.StatusPending).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotificationNotFound
		}

		return "", fmt.Errorf("failed to mark channel sent: %w", err)
	}

	return status, nil
}

// MarkFailed moves a pending notification to the terminal failed state with a
// diagnostic reason.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE notifications
		SET status = $1, failure_reason = $2, updated_at = now()
		WHERE id = $3 AND status = $4;
    `

	res, err := r.db.ExecContext(ctx, query, model.StatusFailed, reason, id, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// IncrementAttempts bumps the dispatch attempt counter and returns the new
// value. Called once per pass that leaves a notification incomplete.
func (r *Repository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET attempts = attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING attempts;
    `

	var attempts int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotificationNotFound
		}

		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}

	return attempts, nil
}

// DeleteByEvent removes every notification scheduled for the event. Used on
// event deletion and as the first half of a full reschedule.
func (r *Repository) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	query := `
		DELETE FROM notifications
		WHERE event_id = $1;
    `

	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("failed to delete notifications by event: %w", err)
	}

	return nil
}

// DeleteByReminder removes every notification referencing the reminder.
func (r *Repository) DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error {
	query := `
		DELETE FROM notifications
		WHERE reminder_id = $1;
    `

	if _, err := r.db.ExecContext(ctx, query, reminderID); err != nil {
		return fmt.Errorf("failed to delete notifications by reminder: %w", err)
	}

	return nil
}

// DeleteByEventUser removes a single recipient's still-pending notifications
// for an event. Already-sent or failed rows are kept for the audit trail.
func (r *Repository) DeleteByEventUser(ctx context.Context, eventID, userID uuid.UUID) error {
	query := `
		DELETE FROM notifications
		WHERE event_id = $1 AND user_id = $2 AND status = $3;
    `

	if _, err := r.db.ExecContext(ctx, query, eventID, userID, model.StatusPending); err != nil {
		return fmt.Errorf("failed to delete notifications by event and user: %w", err)
	}

	return nil
}

func scanNotifications(rows *sql.Rows) ([]model.Notification, error) {
	var notifications []model.Notification

	for rows.Next() {
		var (
			n             model.Notification
			inAppSentAt   sql.NullTime
			emailSentAt   sql.NullTime
			failureReason sql.NullString
		)

		err := rows.Scan(
			&n.ID, &n.CompanyID, &n.EventID, &n.ReminderID, &n.UserID,
			&n.ScheduledAt, &n.Status, &inAppSentAt, &emailSentAt,
			&failureReason, &n.Attempts, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if inAppSentAt.Valid {
			n.InAppSentAt = &inAppSentAt.Time
		}
		if emailSentAt.Valid {
			n.EmailSentAt = &emailSentAt.Time
		}
		if failureReason.Valid {
			n.FailureReason = &failureReason.String
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
