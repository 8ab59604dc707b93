package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is the calendar entry notifications are scheduled against. Events are
// owned by the calendar subsystem; this engine only reads them.
type Event struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"company_id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// User is the recipient view the engine needs for delivery.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}
