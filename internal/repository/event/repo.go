// Package event reads the calendar subsystem's events and shares tables.
// This engine never writes them.
package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"calremind/internal/model"
)

var ErrEventNotFound = errors.New("event not found")

// Repository provides read-only access to events and event shares.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new event repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves an event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.Event, error) {
	query := `
		SELECT id, company_id, owner_user_id, title, description, location, start_time, end_time
		FROM events
		WHERE id = $1;
    `

	var e model.Event
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.CompanyID, &e.OwnerUserID, &e.Title, &e.Description, &e.Location, &e.StartTime, &e.EndTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrEventNotFound
		}

		return model.Event{}, fmt.Errorf("failed to get event: %w", err)
	}

	return e, nil
}

// GetSharedUserIDs returns the users holding an active share on the event,
// owner excluded. Recomputed on every scheduling run, never cached.
func (r *Repository) GetSharedUserIDs(ctx context.Context, eventID, companyID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM event_shares
		WHERE event_id = $1 AND company_id = $2;
    `

	rows, err := r.db.QueryContext(ctx, query, eventID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared users: %w", err)
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		userIDs = append(userIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return userIDs, nil
}
