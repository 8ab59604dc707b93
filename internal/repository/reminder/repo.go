package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"calremind/internal/model"
)

var ErrReminderNotFound = errors.New("reminder not found")

// Repository provides methods to interact with the reminders table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new reminder repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a reminder and returns it with its generated ID.
func (r *Repository) Create(ctx context.Context, rem model.Reminder) (model.Reminder, error) {
	query := `
		INSERT INTO reminders (
		    event_id, company_id, minutes_before, is_default
		) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
    `

	err := r.db.QueryRowContext(
		ctx, query, rem.EventID, rem.CompanyID, rem.MinutesBefore, rem.IsDefault,
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("failed to create reminder: %w", err)
	}

	return rem, nil
}

// GetByID retrieves a single reminder.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.Reminder, error) {
	query := `
		SELECT id, event_id, company_id, minutes_before, is_default, created_at
		FROM reminders
		WHERE id = $1;
    `

	var rem model.Reminder
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rem.ID, &rem.EventID, &rem.CompanyID, &rem.MinutesBefore, &rem.IsDefault, &rem.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reminder{}, ErrReminderNotFound
		}

		return model.Reminder{}, fmt.Errorf("failed to get reminder: %w", err)
	}

	return rem, nil
}

// GetByEvent retrieves all reminders configured for an event.
func (r *Repository) GetByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Reminder, error) {
	query := `
		SELECT id, event_id, company_id, minutes_before, is_default, created_at
		FROM reminders
		WHERE event_id = $1
		ORDER BY minutes_before ASC;
    `

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders for event: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var rem model.Reminder
		err := rows.Scan(&rem.ID, &rem.EventID, &rem.CompanyID, &rem.MinutesBefore, &rem.IsDefault, &rem.CreatedAt)
		if err != nil {
			return nil, err
		}

		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reminders, nil
}

// Delete removes a reminder by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM reminders
		WHERE id = $1;
    `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrReminderNotFound
	}

	return nil
}

// DeleteDefaults removes the event's default reminders and returns their IDs,
// so the caller can also drop the notifications scheduled from them.
func (r *Repository) DeleteDefaults(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		DELETE FROM reminders
		WHERE event_id = $1 AND is_default = true
		RETURNING id;
    `

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete default reminders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// CountCustom returns the number of non-default reminders on an event.
func (r *Repository) CountCustom(ctx context.Context, eventID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reminders
		WHERE event_id = $1 AND is_default = false;
    `

	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count custom reminders: %w", err)
	}

	return count, nil
}
