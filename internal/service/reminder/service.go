// Package reminder owns the reminder lifecycle. An event carries either one
// or more user-created reminders or exactly one system default, never both:
// adding the first custom reminder retires the default, removing the last
// custom reminder restores it.
package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/model"
)

type reminderStore interface {
	Create(ctx context.Context, rem model.Reminder) (model.Reminder, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Reminder, error)
	GetByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Reminder, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteDefaults(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
	CountCustom(ctx context.Context, eventID uuid.UUID) (int, error)
}

type eventSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Event, error)
}

type schedulerService interface {
	ScheduleForEvent(ctx context.Context, event model.Event, reminders []model.Reminder) error
	RemoveForReminder(ctx context.Context, reminderID uuid.UUID) error
}

// Service manages reminders and keeps the scheduled notifications in step
// with reminder changes.
type Service struct {
	store          reminderStore
	events         eventSource
	scheduler      schedulerService
	defaultMinutes int
}

// NewService creates a reminder service. defaultMinutes is the lead time of
// the fallback reminder inserted when an event has no custom ones.
func NewService(store reminderStore, events eventSource, scheduler schedulerService, defaultMinutes int) *Service {
	return &Service{
		store:          store,
		events:         events,
		scheduler:      scheduler,
		defaultMinutes: defaultMinutes,
	}
}

// EnsureDefault inserts the fallback reminder for a freshly created event
// that has no reminders yet, and schedules its notifications.
func (s *Service) EnsureDefault(ctx context.Context, eventID uuid.UUID) (model.Reminder, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("ensure default reminder: %w", err)
	}

	existing, err := s.store.GetByEvent(ctx, eventID)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("ensure default reminder: %w", err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	return s.insertDefault(ctx, event)
}

// Add creates a custom reminder on the event. If the event only carried the
// system default, the default is retired together with its notifications.
func (s *Service) Add(ctx context.Context, eventID uuid.UUID, minutesBefore int) (model.Reminder, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("add reminder: %w", err)
	}

	retired, err := s.store.DeleteDefaults(ctx, eventID)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("add reminder: %w", err)
	}

	for _, id := range retired {
		if err := s.scheduler.RemoveForReminder(ctx, id); err != nil {
			return model.Reminder{}, fmt.Errorf("add reminder: %w", err)
		}

		zlog.Logger.Info().
			Str("event_id", eventID.String()).
			Str("reminder_id", id.String()).
			Msg("retired default reminder")
	}

	rem, err := s.store.Create(ctx, model.Reminder{
		EventID:       eventID,
		CompanyID:     event.CompanyID,
		MinutesBefore: minutesBefore,
		IsDefault:     false,
	})
	if err != nil {
		return model.Reminder{}, fmt.Errorf("add reminder: %w", err)
	}

	if err := s.scheduler.ScheduleForEvent(ctx, event, []model.Reminder{rem}); err != nil {
		return model.Reminder{}, fmt.Errorf("add reminder: %w", err)
	}

	return rem, nil
}

// Remove deletes a reminder and its scheduled notifications. When the last
// custom reminder goes away the system default is restored.
func (s *Service) Remove(ctx context.Context, reminderID uuid.UUID) error {
	rem, err := s.store.GetByID(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}

	if err := s.store.Delete(ctx, reminderID); err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}

	if err := s.scheduler.RemoveForReminder(ctx, reminderID); err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}

	if rem.IsDefault {
		return nil
	}

	remaining, err := s.store.CountCustom(ctx, rem.EventID)
	if err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}
	if remaining > 0 {
		return nil
	}

	event, err := s.events.GetByID(ctx, rem.EventID)
	if err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}

	if _, err := s.insertDefault(ctx, event); err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}

	return nil
}

func (s *Service) insertDefault(ctx context.Context, event model.Event) (model.Reminder, error) {
	rem, err := s.store.Create(ctx, model.Reminder{
		EventID:       event.ID,
		CompanyID:     event.CompanyID,
		MinutesBefore: s.defaultMinutes,
		IsDefault:     true,
	})
	if err != nil {
		return model.Reminder{}, err
	}

	if err := s.scheduler.ScheduleForEvent(ctx, event, []model.Reminder{rem}); err != nil {
		return model.Reminder{}, err
	}

	zlog.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("reminder_id", rem.ID.String()).
		Int("minutes_before", rem.MinutesBefore).
		Msg("restored default reminder")

	return rem, nil
}
