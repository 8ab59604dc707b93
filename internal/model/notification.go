package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Delivery channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// Notification represents one obligation to remind one user about one
// reminder of one event. The (CompanyID, EventID, ReminderID, UserID) tuple
// is unique; repeated scheduling of the same obligation is a no-op.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"company_id"`
	EventID       uuid.UUID  `json:"event_id"`
	ReminderID    uuid.UUID  `json:"reminder_id"`
	UserID        uuid.UUID  `json:"user_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`   // event start minus the reminder offset
	Status        string     `json:"status"`         // pending, sent or failed
	InAppSentAt   *time.Time `json:"in_app_sent_at"` // set when the in-app push went out
	EmailSentAt   *time.Time `json:"email_sent_at"`  // set when the email went out
	FailureReason *string    `json:"failure_reason,omitempty"`
	Attempts      int        `json:"attempts"` // dispatch passes that left this row incomplete
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Delivered reports whether both channels have gone out. Status flips to
// sent exactly when this becomes true.
func (n Notification) Delivered() bool {
	return n.InAppSentAt != nil && n.EmailSentAt != nil
}
