package pgstore_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/pgstore"
	"github.com/civicworks/notifyhub/pkg/queue"
)

func newTaskMock(t *testing.T) (*pgstore.TaskStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(sliceConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return pgstore.NewTaskStore(db,
		pgstore.WithTaskClock(func() time.Time { return now }),
		pgstore.WithTaskBackoff(queue.LinearBackoff(time.Minute)),
	), mock
}

var taskCols = []string{"id", "queue", "task_name", "payload", "status", "priority", "retry_count", "max_retries", "scheduled_at", "created_at"}

func TestTaskStore_CreateTask(t *testing.T) {
	t.Parallel()

	task := &queue.Task{
		ID: uuid.New(), Queue: "notifications", TaskName: "notify.ScheduledJob",
		Payload: []byte(`{"id":"job-1"}`), Status: queue.TaskStatusPending, Priority: queue.PriorityHigh,
		MaxRetries: 3, ScheduledAt: now.Add(time.Hour), CreatedAt: now,
	}

	t.Run("inserts", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_jobs")).
			WithArgs(task.ID.String(), "notifications", "notify.ScheduledJob", task.Payload, "pending", 75, 0, 3, task.ScheduledAt, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.CreateTask(context.Background(), task))
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_jobs")).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		assert.ErrorIs(t, store.CreateTask(context.Background(), task), queue.ErrTaskExists)
	})
}

func TestTaskStore_ClaimTask(t *testing.T) {
	t.Parallel()

	worker := uuid.New()

	t.Run("claims", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE scheduled_jobs SET status = 'processing'")).
			WithArgs(now.Add(time.Minute), worker.String(), []string{"notifications"}, now).
			WillReturnRows(sqlmock.NewRows(taskCols).
				AddRow(id.String(), "notifications", "notify.ScheduledJob", []byte(`{}`), "processing", 75, 1, 3, now, now))

		task, err := store.ClaimTask(context.Background(), worker, []string{"notifications"}, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, id, task.ID)
		assert.Equal(t, queue.PriorityHigh, task.Priority)
		assert.Equal(t, int8(1), task.RetryCount)
		require.NotNil(t, task.LockedBy)
		assert.Equal(t, worker, *task.LockedBy)
	})

	t.Run("nothing due", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE scheduled_jobs SET status = 'processing'")).
			WillReturnRows(sqlmock.NewRows(taskCols))

		_, err := store.ClaimTask(context.Background(), worker, []string{"notifications"}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})
}

func TestTaskStore_FailTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("reschedules", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT retry_count, max_retries FROM scheduled_jobs")).
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count", "max_retries"}).AddRow(1, 3))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_jobs SET status = 'pending'")).
			WithArgs(id.String(), 2, "gateway down", now.Add(2*time.Minute)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.FailTask(context.Background(), id, "gateway down"))
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT retry_count, max_retries FROM scheduled_jobs")).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count", "max_retries"}).AddRow(3, 3))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_jobs SET status = 'failed'")).
			WithArgs(id.String(), 4, "still down").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.FailTask(context.Background(), id, "still down"))
	})

	t.Run("not claimed", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT retry_count, max_retries FROM scheduled_jobs")).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count", "max_retries"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, store.FailTask(context.Background(), id, "x"), queue.ErrTaskNotClaimed)
	})
}

func TestTaskStore_MoveToDLQ(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("moves", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_jobs_dlq")).
			WithArgs(id.String(), sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_jobs WHERE id = $1")).
			WithArgs(id.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.MoveToDLQ(context.Background(), id))
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		store, mock := newTaskMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_jobs_dlq")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, store.MoveToDLQ(context.Background(), id), queue.ErrTaskNotFound)
	})
}

func TestTaskStore_CompleteAndExtend(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	store, mock := newTaskMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_jobs SET status = 'completed'")).
		WithArgs(id.String(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_jobs SET locked_until = $2")).
		WithArgs(id.String(), now.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.CompleteTask(context.Background(), id))
	assert.ErrorIs(t, store.ExtendLock(context.Background(), id, time.Minute), queue.ErrTaskNotClaimed)
}

func TestTaskStore_DeadLetters(t *testing.T) {
	t.Parallel()

	store, mock := newTaskMock(t)
	dlID, taskID := uuid.New(), uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_jobs_dlq WHERE queue = $1")).
		WithArgs("notifications", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "queue", "task_name", "payload", "priority", "error", "retry_count", "failed_at"}).
			AddRow(dlID.String(), taskID.String(), "notifications", "notify.ScheduledJob", []byte(`{}`), 50, "boom", 4, now))

	dead, err := store.DeadLetters(context.Background(), "notifications", 50)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, taskID, dead[0].TaskID)
	assert.Equal(t, int8(4), dead[0].RetryCount)
}
