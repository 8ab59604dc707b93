package notification

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"calremind/internal/model"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}

	wrappedDB := &dbpg.DB{Master: db}
	repo := NewRepository(wrappedDB)

	return repo, mock
}

func testNotification() model.Notification {
	return model.Notification{
		CompanyID:   uuid.New(),
		EventID:     uuid.New(),
		ReminderID:  uuid.New(),
		UserID:      uuid.New(),
		ScheduledAt: time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC),
	}
}

func TestCreate(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := testNotification()
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(n.CompanyID, n.EventID, n.ReminderID, n.UserID, n.ScheduledAt, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	created, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, model.StatusPending, created.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateTupleIsNoop(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := testNotification()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(n.CompanyID, n.EventID, n.ReminderID, n.UserID, n.ScheduledAt, model.StatusPending).
		WillReturnError(&pq.Error{Code: "23505"})

	created, err := repo.Create(context.Background(), n)
	assert.NoError(t, err, "a unique violation is the idempotent no-op, not an error")
	assert.Nil(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPending(t *testing.T) {
	repo, mock := setupMockDB(t)

	before := time.Date(2025, 1, 10, 14, 31, 0, 0, time.UTC)
	n := testNotification()
	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "company_id", "event_id", "reminder_id", "user_id",
		"scheduled_at", "status", "in_app_sent_at", "email_sent_at",
		"failure_reason", "attempts", "created_at", "updated_at",
	}).AddRow(
		id, n.CompanyID, n.EventID, n.ReminderID, n.UserID,
		n.ScheduledAt, model.StatusPending, nil, nil,
		nil, 0, now, now,
	)

	mock.ExpectQuery("SELECT(.+)FROM notifications(.+)ORDER BY scheduled_at ASC").
		WithArgs(model.StatusPending, before).
		WillReturnRows(rows)

	pending, err := repo.GetPending(context.Background(), before)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Nil(t, pending[0].InAppSentAt)
	assert.Nil(t, pending[0].EmailSentAt)
	assert.Nil(t, pending[0].FailureReason)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkChannelSent(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()

	// First channel: the other timestamp is still null, so the row stays
	// pending.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications")).
		WithArgs(id, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.StatusPending))

	status, err := repo.MarkChannelSent(context.Background(), id, model.ChannelInApp)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status)

	// Second channel completes the pair and the row flips to sent.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications")).
		WithArgs(id, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.StatusSent))

	status, err = repo.MarkChannelSent(context.Background(), id, model.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkChannelSent_UnknownChannel(t *testing.T) {
	repo, _ := setupMockDB(t)

	_, err := repo.MarkChannelSent(context.Background(), uuid.New(), "carrier_pigeon")
	assert.Error(t, err)
}

func TestMarkFailed(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications")).
		WithArgs(model.StatusFailed, "event not found", id, model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), id, "event not found")
	assert.NoError(t, err)

	// A row that is not pending anymore cannot transition to failed.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications")).
		WithArgs(model.StatusFailed, "event not found", id, model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkFailed(context.Background(), id, "event not found")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementAttempts(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(3))

	attempts, err := repo.IncrementAttempts(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByEventUser_OnlyPending(t *testing.T) {
	repo, mock := setupMockDB(t)

	eventID, userID := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications")).
		WithArgs(eventID, userID, model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.DeleteByEventUser(context.Background(), eventID, userID)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByEvent(t *testing.T) {
	repo, mock := setupMockDB(t)

	eventID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications")).
		WithArgs(eventID).
		WillReturnResult(sqlmock.NewResult(0, 4))

	err := repo.DeleteByEvent(context.Background(), eventID)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
