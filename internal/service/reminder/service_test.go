package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calremind/internal/model"
	remrepo "calremind/internal/repository/reminder"
)

type fakeReminderStore struct {
	rows map[uuid.UUID]model.Reminder
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{rows: make(map[uuid.UUID]model.Reminder)}
}

func (f *fakeReminderStore) Create(_ context.Context, rem model.Reminder) (model.Reminder, error) {
	rem.ID = uuid.New()
	rem.CreatedAt = time.Now().UTC()
	f.rows[rem.ID] = rem

	return rem, nil
}

func (f *fakeReminderStore) GetByID(_ context.Context, id uuid.UUID) (model.Reminder, error) {
	rem, ok := f.rows[id]
	if !ok {
		return model.Reminder{}, remrepo.ErrReminderNotFound
	}

	return rem, nil
}

func (f *fakeReminderStore) GetByEvent(_ context.Context, eventID uuid.UUID) ([]model.Reminder, error) {
	var out []model.Reminder
	for _, rem := range f.rows {
		if rem.EventID == eventID {
			out = append(out, rem)
		}
	}

	return out, nil
}

func (f *fakeReminderStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return remrepo.ErrReminderNotFound
	}

	delete(f.rows, id)

	return nil
}

func (f *fakeReminderStore) DeleteDefaults(_ context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, rem := range f.rows {
		if rem.EventID == eventID && rem.IsDefault {
			ids = append(ids, id)
			delete(f.rows, id)
		}
	}

	return ids, nil
}

func (f *fakeReminderStore) CountCustom(_ context.Context, eventID uuid.UUID) (int, error) {
	count := 0
	for _, rem := range f.rows {
		if rem.EventID == eventID && !rem.IsDefault {
			count++
		}
	}

	return count, nil
}

func (f *fakeReminderStore) byEvent(eventID uuid.UUID) []model.Reminder {
	out, _ := f.GetByEvent(context.Background(), eventID)
	return out
}

type fakeEvents struct {
	events map[uuid.UUID]model.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (model.Event, error) {
	return f.events[id], nil
}

// fakeScheduler records scheduling calls so tests can verify notifications
// follow reminder changes.
type fakeScheduler struct {
	scheduled []uuid.UUID // reminder ids passed to ScheduleForEvent
	removed   []uuid.UUID // reminder ids passed to RemoveForReminder
}

func (f *fakeScheduler) ScheduleForEvent(_ context.Context, _ model.Event, reminders []model.Reminder) error {
	for _, rem := range reminders {
		f.scheduled = append(f.scheduled, rem.ID)
	}

	return nil
}

func (f *fakeScheduler) RemoveForReminder(_ context.Context, reminderID uuid.UUID) error {
	f.removed = append(f.removed, reminderID)
	return nil
}

func setup() (*Service, *fakeReminderStore, *fakeScheduler, model.Event) {
	store := newFakeReminderStore()
	sched := &fakeScheduler{}
	event := model.Event{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		StartTime: time.Now().UTC().Add(2 * time.Hour),
	}
	events := &fakeEvents{events: map[uuid.UUID]model.Event{event.ID: event}}
	svc := NewService(store, events, sched, 30)

	return svc, store, sched, event
}

func TestEnsureDefault_CreatesFallback(t *testing.T) {
	svc, store, sched, event := setup()

	rem, err := svc.EnsureDefault(context.Background(), event.ID)
	require.NoError(t, err)

	assert.True(t, rem.IsDefault)
	assert.Equal(t, 30, rem.MinutesBefore)
	assert.Len(t, store.byEvent(event.ID), 1)
	assert.Equal(t, []uuid.UUID{rem.ID}, sched.scheduled)
}

func TestEnsureDefault_NoopWhenRemindersExist(t *testing.T) {
	svc, store, sched, event := setup()

	first, err := svc.EnsureDefault(context.Background(), event.ID)
	require.NoError(t, err)

	second, err := svc.EnsureDefault(context.Background(), event.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.byEvent(event.ID), 1)
	assert.Len(t, sched.scheduled, 1)
}

func TestAdd_RetiresDefault(t *testing.T) {
	svc, store, sched, event := setup()

	def, err := svc.EnsureDefault(context.Background(), event.ID)
	require.NoError(t, err)

	custom, err := svc.Add(context.Background(), event.ID, 15)
	require.NoError(t, err)

	remaining := store.byEvent(event.ID)
	require.Len(t, remaining, 1, "default must be retired by the first custom reminder")
	assert.Equal(t, custom.ID, remaining[0].ID)
	assert.False(t, remaining[0].IsDefault)

	assert.Contains(t, sched.removed, def.ID, "default's notifications must be dropped")
	assert.Contains(t, sched.scheduled, custom.ID)
}

func TestAdd_SecondCustomKeepsFirst(t *testing.T) {
	svc, store, _, event := setup()

	_, err := svc.Add(context.Background(), event.ID, 15)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), event.ID, 60)
	require.NoError(t, err)

	assert.Len(t, store.byEvent(event.ID), 2)
}

func TestRemove_LastCustomRestoresDefault(t *testing.T) {
	svc, store, sched, event := setup()

	custom, err := svc.Add(context.Background(), event.ID, 15)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), custom.ID))

	remaining := store.byEvent(event.ID)
	require.Len(t, remaining, 1, "exactly one default must be restored")
	assert.True(t, remaining[0].IsDefault)
	assert.Equal(t, 30, remaining[0].MinutesBefore)

	assert.Contains(t, sched.removed, custom.ID)
	assert.Contains(t, sched.scheduled, remaining[0].ID)
}

func TestRemove_NonLastCustomKeepsOthers(t *testing.T) {
	svc, store, _, event := setup()

	first, err := svc.Add(context.Background(), event.ID, 15)
	require.NoError(t, err)
	second, err := svc.Add(context.Background(), event.ID, 60)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), first.ID))

	remaining := store.byEvent(event.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)
	assert.False(t, remaining[0].IsDefault)
}

func TestRemove_DefaultDoesNotRecreateItself(t *testing.T) {
	svc, store, _, event := setup()

	def, err := svc.EnsureDefault(context.Background(), event.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), def.ID))

	assert.Empty(t, store.byEvent(event.ID))
}

func TestRemove_UnknownReminder(t *testing.T) {
	svc, _, _, _ := setup()

	err := svc.Remove(context.Background(), uuid.New())
	assert.ErrorIs(t, err, remrepo.ErrReminderNotFound)
}
