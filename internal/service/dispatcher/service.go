// Package dispatcher drives delivery of due notifications across the in-app
// and email channels. Each channel succeeds or fails on its own; a channel
// failure leaves the notification pending for the next poll, while a missing
// event or recipient moves it to the terminal failed state.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"calremind/internal/model"
	"calremind/internal/repository/event"
	"calremind/internal/repository/user"
)

type notificationStore interface {
	GetPending(ctx context.Context, before time.Time) ([]model.Notification, error)
	MarkChannelSent(ctx context.Context, id uuid.UUID, channel string) (string, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
}

type eventSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Event, error)
}

type userSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

type inAppSender interface {
	Emit(userID uuid.UUID, payload interface{}) error
}

type emailSender interface {
	Send(to, subject, text, html string) error
}

type statusCache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
}

// Options bound the work done in a single dispatch pass.
type Options struct {
	Workers     int           // bounded parallelism across notifications
	ItemTimeout time.Duration // deadline for one notification's processing
	MaxAttempts int           // escalate to failed after this many incomplete passes; 0 disables
	Retry       retry.Strategy
}

// Result reports one pass of ProcessPendingNotifications. Succeeded means the
// notification was processed without a structural error, not that both
// channels delivered.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
}

// Service delivers due notifications.
type Service struct {
	store  notificationStore
	events eventSource
	users  userSource
	inApp  inAppSender
	email  emailSender
	cache  statusCache
	opts   Options
	now    func() time.Time
}

// NewService creates a dispatcher service. cache may be nil; status changes
// are then only persisted.
func NewService(store notificationStore, events eventSource, users userSource, inApp inAppSender, email emailSender, cache statusCache, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &Service{
		store:  store,
		events: events,
		users:  users,
		inApp:  inApp,
		email:  email,
		cache:  cache,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock source, shared with the scheduler in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ProcessPendingNotifications fetches every pending notification due at or
// before now and attempts delivery. Notifications are fanned out to a bounded
// worker pool; a slow or broken item cannot stall the rest of the batch.
func (s *Service) ProcessPendingNotifications(ctx context.Context) (Result, error) {
	due, err := s.store.GetPending(ctx, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("fetch pending notifications: %w", err)
	}

	if len(due) == 0 {
		return Result{}, nil
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
	)

	items := make(chan model.Notification)

	wg.Add(s.opts.Workers)
	for i := 0; i < s.opts.Workers; i++ {
		go func() {
			defer wg.Done()

			for n := range items {
				if s.processOne(ctx, n) {
					succeeded.Add(1)
				} else {
					failed.Add(1)
				}
			}
		}()
	}

	for _, n := range due {
		select {
		case <-ctx.Done():
			close(items)
			wg.Wait()
			return Result{}, ctx.Err()
		case items <- n:
		}
	}

	close(items)
	wg.Wait()

	return Result{
		Processed: len(due),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

// processOne attempts both channels for a single notification. It reports
// false only on a structural failure that moved the row to failed.
func (s *Service) processOne(ctx context.Context, n model.Notification) (ok bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().
				Str("notification_id", n.ID.String()).
				Interface("panic", r).
				Msg("panic while processing notification")
			s.fail(ctx, n.ID, fmt.Sprintf("panic: %v", r))
			ok = false
		}
	}()

	ev, err := s.events.GetByID(ctx, n.EventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			s.fail(ctx, n.ID, "event not found")
			return false
		}

		zlog.Logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to resolve event")
		return false
	}

	recipient, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.fail(ctx, n.ID, "user not found")
			return false
		}

		zlog.Logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to resolve recipient")
		return false
	}

	remaining := FormatTimeRemaining(ev.StartTime.Sub(s.now()))
	status := n.Status

	if n.InAppSentAt == nil {
		if err := s.sendInApp(ctx, n, ev, remaining); err != nil {
			// Non-fatal: the row stays pending and the channel is retried
			// on the next poll.
			zlog.Logger.Warn().Err(err).
				Str("notification_id", n.ID.String()).
				Str("user_id", n.UserID.String()).
				Msg("in-app delivery failed")
		} else if st, err := s.store.MarkChannelSent(ctx, n.ID, model.ChannelInApp); err != nil {
			zlog.Logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to mark in-app sent")
		} else {
			status = st
		}
	}

	if n.EmailSentAt == nil {
		if err := s.sendEmail(ctx, n, ev, recipient, remaining); err != nil {
			zlog.Logger.Warn().Err(err).
				Str("notification_id", n.ID.String()).
				Str("user_id", n.UserID.String()).
				Msg("email delivery failed")
		} else if st, err := s.store.MarkChannelSent(ctx, n.ID, model.ChannelEmail); err != nil {
			zlog.Logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to mark email sent")
		} else {
			status = st
		}
	}

	if status == model.StatusSent {
		s.cacheStatus(ctx, n.ID, model.StatusSent)
		zlog.Logger.Info().Str("notification_id", n.ID.String()).Msg("notification delivered on both channels")
		return true
	}

	attempts, err := s.store.IncrementAttempts(ctx, n.ID)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to record attempt")
		return true
	}

	if s.opts.MaxAttempts > 0 && attempts >= s.opts.MaxAttempts {
		s.fail(ctx, n.ID, "delivery attempts exhausted")
		return false
	}

	return true
}

func (s *Service) sendInApp(ctx context.Context, n model.Notification, ev model.Event, remaining string) error {
	payload := InAppPayload{
		Type:    "calendar_reminder",
		EventID: ev.ID,
		Title:   "Upcoming event",
		Message: fmt.Sprintf("%s starts %s", ev.Title, remaining),
		EventDetails: EventDetails{
			Title:         ev.Title,
			StartTime:     ev.StartTime,
			Location:      ev.Location,
			TimeRemaining: remaining,
		},
		Timestamp: s.now(),
	}

	return retry.Do(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return s.inApp.Emit(n.UserID, payload)
		}
	}, s.opts.Retry)
}

func (s *Service) sendEmail(ctx context.Context, n model.Notification, ev model.Event, recipient model.User, remaining string) error {
	subject := fmt.Sprintf("Reminder: %s", ev.Title)
	text, html := BuildEmailBody(ev, remaining)

	return retry.Do(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return s.email.Send(recipient.Email, subject, text, html)
		}
	}, s.opts.Retry)
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.store.MarkFailed(ctx, id, reason); err != nil {
		zlog.Logger.Error().Err(err).
			Str("notification_id", id.String()).
			Str("reason", reason).
			Msg("failed to mark notification failed")
		return
	}

	s.cacheStatus(ctx, id, model.StatusFailed)

	zlog.Logger.Warn().
		Str("notification_id", id.String()).
		Str("reason", reason).
		Msg("notification failed")
}

func (s *Service) cacheStatus(ctx context.Context, id uuid.UUID, status string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.SetWithRetry(ctx, s.opts.Retry, id.String(), status); err != nil {
		zlog.Logger.Error().Err(err).Str("notification_id", id.String()).Msg("failed to cache notification status")
	}
}

// InAppPayload is the message pushed to the recipient's real-time channel.
type InAppPayload struct {
	Type         string       `json:"type"`
	EventID      uuid.UUID    `json:"eventId"`
	Title        string       `json:"title"`
	Message      string       `json:"message"`
	EventDetails EventDetails `json:"eventDetails"`
	Timestamp    time.Time    `json:"timestamp"`
}

// EventDetails carries the event fields shown by the in-app client.
type EventDetails struct {
	Title         string    `json:"title"`
	StartTime     time.Time `json:"startTime"`
	Location      string    `json:"location,omitempty"`
	TimeRemaining string    `json:"timeRemaining"`
}
