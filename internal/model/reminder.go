package model

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a configured lead time for an event. An event carries either
// one or more user-created reminders, or exactly one default reminder the
// system inserted as a fallback, never both.
type Reminder struct {
	ID            uuid.UUID `json:"id"`
	EventID       uuid.UUID `json:"event_id"`
	CompanyID     uuid.UUID `json:"company_id"`
	MinutesBefore int       `json:"minutes_before"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
}

// FireTime returns the absolute moment this reminder should fire for the
// given event start, in UTC.
func (r Reminder) FireTime(eventStart time.Time) time.Time {
	return eventStart.UTC().Add(-time.Duration(r.MinutesBefore) * time.Minute)
}
