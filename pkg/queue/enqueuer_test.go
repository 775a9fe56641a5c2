package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/queue"
)

type reminder struct {
	UserID string `json:"user_id"`
}

type failingRepo struct{ err error }

func (r failingRepo) CreateTask(context.Context, *queue.Task) error { return r.err }

func TestNewEnqueuer(t *testing.T) {
	t.Parallel()

	_, err := queue.NewEnqueuer(nil)
	assert.ErrorIs(t, err, queue.ErrRepositoryNil)
}

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		enq, err := queue.NewEnqueuer(storage, queue.WithEnqueuerClock(clock))
		require.NoError(t, err)
		require.NoError(t, enq.Enqueue(context.Background(), reminder{UserID: "u1"}))

		tasks := storage.Tasks(queue.TaskStatusPending)
		require.Len(t, tasks, 1)
		task := tasks[0]
		assert.Equal(t, queue.DefaultQueueName, task.Queue)
		assert.Equal(t, "queue_test.reminder", task.TaskName)
		assert.Equal(t, queue.PriorityDefault, task.Priority)
		assert.Equal(t, int8(3), task.MaxRetries)
		assert.Equal(t, now, task.ScheduledAt)
		assert.Equal(t, now, task.CreatedAt)

		var got reminder
		require.NoError(t, json.Unmarshal(task.Payload, &got))
		assert.Equal(t, "u1", got.UserID)
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		enq, err := queue.NewEnqueuer(storage,
			queue.WithEnqueuerClock(clock),
			queue.WithDefaultQueue("notifications"),
			queue.WithDefaultPriority(queue.PriorityLow),
		)
		require.NoError(t, err)

		at := now.Add(2 * time.Hour)
		require.NoError(t, enq.Enqueue(context.Background(), &reminder{UserID: "u2"},
			queue.WithPriority(queue.PriorityHigh),
			queue.WithMaxRetries(5),
			queue.WithDelay(time.Minute),
			queue.WithScheduledAt(at),
			queue.WithTaskName("custom"),
		))
		require.NoError(t, enq.Enqueue(context.Background(), reminder{UserID: "u3"},
			queue.WithDelay(time.Minute),
		))

		tasks := storage.Tasks(queue.TaskStatusPending)
		require.Len(t, tasks, 2)
		assert.Equal(t, "custom", tasks[0].TaskName)
		assert.Equal(t, queue.PriorityHigh, tasks[0].Priority)
		assert.Equal(t, int8(5), tasks[0].MaxRetries)
		assert.Equal(t, at, tasks[0].ScheduledAt)
		assert.Equal(t, "notifications", tasks[0].Queue)

		assert.Equal(t, queue.PriorityLow, tasks[1].Priority)
		assert.Equal(t, now.Add(time.Minute), tasks[1].ScheduledAt)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		t.Parallel()

		enq, err := queue.NewEnqueuer(failingRepo{})
		require.NoError(t, err)

		assert.ErrorIs(t, enq.Enqueue(context.Background(), nil), queue.ErrPayloadNil)
		assert.ErrorIs(t, enq.Enqueue(context.Background(), reminder{}, queue.WithPriority(101)), queue.ErrInvalidPriority)
		assert.ErrorIs(t, enq.Enqueue(context.Background(), make(chan int)), queue.ErrPayloadMarshal)
	})

	t.Run("wraps repository error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		enq, err := queue.NewEnqueuer(failingRepo{err: boom})
		require.NoError(t, err)

		err = enq.Enqueue(context.Background(), reminder{})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "queue_test.reminder")
	})
}

func TestNewTaskHandler(t *testing.T) {
	t.Parallel()

	var got reminder
	h := queue.NewTaskHandler(func(_ context.Context, r reminder) error {
		got = r
		return nil
	})
	assert.Equal(t, "queue_test.reminder", h.Name())

	require.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"user_id":"u9"}`)))
	assert.Equal(t, "u9", got.UserID)

	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{`)))
}

func TestLinearBackoff(t *testing.T) {
	t.Parallel()

	b := queue.LinearBackoff(10 * time.Second)
	assert.Equal(t, 10*time.Second, b(0))
	assert.Equal(t, 10*time.Second, b(1))
	assert.Equal(t, 30*time.Second, b(3))
}
