// Package scheduler computes which notification instances should exist for a
// calendar event and keeps the persisted set consistent across event edits,
// reminder changes and sharing changes.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/model"
)

type notificationStore interface {
	Create(ctx context.Context, n model.Notification) (*model.Notification, error)
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) error
	DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error
	DeleteByEventUser(ctx context.Context, eventID, userID uuid.UUID) error
}

type shareSource interface {
	GetSharedUserIDs(ctx context.Context, eventID, companyID uuid.UUID) ([]uuid.UUID, error)
}

// Service schedules notification instances. Every operation is idempotent:
// creation is keyed on the (company, event, reminder, user) tuple and a
// duplicate insert is silently absorbed by the store.
type Service struct {
	store  notificationStore
	shares shareSource
	now    func() time.Time
}

// NewService creates a scheduler service. The clock defaults to UTC now and
// is injectable for tests.
func NewService(store notificationStore, shares shareSource) *Service {
	return &Service{
		store:  store,
		shares: shares,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock source. The dispatcher must be given the
// same one so scheduling and dispatch agree on "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ScheduleForEvent creates notification instances for every recipient of the
// event (owner plus shared users) crossed with every reminder whose fire time
// is still in the future. Safe to call repeatedly with the same inputs.
func (s *Service) ScheduleForEvent(ctx context.Context, event model.Event, reminders []model.Reminder) error {
	recipients, err := s.recipients(ctx, event)
	if err != nil {
		return err
	}

	for _, userID := range recipients {
		if err := s.scheduleFor(ctx, event, reminders, userID); err != nil {
			return err
		}
	}

	return nil
}

// ScheduleForUser creates notification instances for a single recipient,
// used when a user is newly granted a share so nobody else's rows are
// touched.
func (s *Service) ScheduleForUser(ctx context.Context, event model.Event, reminders []model.Reminder, userID uuid.UUID) error {
	return s.scheduleFor(ctx, event, reminders, userID)
}

// RescheduleForEvent drops every notification for the event and recomputes
// the full set. Used when the start time or reminder set changes: offsets
// computed from the old start time cannot be patched in place, and the row
// counts involved are small enough that full recompute is the simplest
// correct strategy.
func (s *Service) RescheduleForEvent(ctx context.Context, event model.Event, reminders []model.Reminder) error {
	if err := s.store.DeleteByEvent(ctx, event.ID); err != nil {
		return fmt.Errorf("reschedule event %s: %w", event.ID, err)
	}

	return s.ScheduleForEvent(ctx, event, reminders)
}

// RemoveForReminder drops every notification referencing a deleted reminder.
func (s *Service) RemoveForReminder(ctx context.Context, reminderID uuid.UUID) error {
	return s.store.DeleteByReminder(ctx, reminderID)
}

// RemoveForUser drops a recipient's still-pending notifications for an event
// when the share is revoked, so an unshared user stops receiving reminders
// immediately rather than until the dispatcher notices.
func (s *Service) RemoveForUser(ctx context.Context, eventID, userID uuid.UUID) error {
	return s.store.DeleteByEventUser(ctx, eventID, userID)
}

func (s *Service) recipients(ctx context.Context, event model.Event) ([]uuid.UUID, error) {
	shared, err := s.shares.GetSharedUserIDs(ctx, event.ID, event.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients for event %s: %w", event.ID, err)
	}

	recipients := make([]uuid.UUID, 0, len(shared)+1)
	recipients = append(recipients, event.OwnerUserID)

	for _, id := range shared {
		if id != event.OwnerUserID {
			recipients = append(recipients, id)
		}
	}

	return recipients, nil
}

func (s *Service) scheduleFor(ctx context.Context, event model.Event, reminders []model.Reminder, userID uuid.UUID) error {
	now := s.now()

	for _, rem := range reminders {
		scheduledAt := rem.FireTime(event.StartTime)

		// Past-due reminders are simply not scheduled.
		if !scheduledAt.After(now) {
			zlog.Logger.Debug().
				Str("event_id", event.ID.String()).
				Str("reminder_id", rem.ID.String()).
				Time("scheduled_at", scheduledAt).
				Msg("skipping past-due reminder")
			continue
		}

		n := model.Notification{
			CompanyID:   event.CompanyID,
			EventID:     event.ID,
			ReminderID:  rem.ID,
			UserID:      userID,
			ScheduledAt: scheduledAt,
		}

		created, err := s.store.Create(ctx, n)
		if err != nil {
			return fmt.Errorf("schedule notification for event %s user %s: %w", event.ID, userID, err)
		}

		// nil without error means the obligation already exists.
		if created == nil {
			continue
		}

		zlog.Logger.Debug().
			Str("notification_id", created.ID.String()).
			Str("user_id", userID.String()).
			Time("scheduled_at", scheduledAt).
			Msg("scheduled notification")
	}

	return nil
}
