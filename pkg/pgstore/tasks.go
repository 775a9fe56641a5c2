package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicworks/notifyhub/pkg/pg"
	"github.com/civicworks/notifyhub/pkg/queue"
)

// TaskStore keeps queue tasks in scheduled_jobs and dead tasks in scheduled_jobs_dlq.
type TaskStore struct {
	db      *sql.DB
	backoff queue.RetryBackoff
	now     func() time.Time
}

type TaskStoreOption func(*TaskStore)

func WithTaskBackoff(b queue.RetryBackoff) TaskStoreOption {
	return func(s *TaskStore) {
		if b != nil {
			s.backoff = b
		}
	}
}

func WithTaskClock(now func() time.Time) TaskStoreOption {
	return func(s *TaskStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTaskStore(db *sql.DB, opts ...TaskStoreOption) *TaskStore {
	s := &TaskStore{db: db, backoff: queue.LinearBackoff(30 * time.Second), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ queue.EnqueuerRepository = (*TaskStore)(nil)
	_ queue.WorkerRepository   = (*TaskStore)(nil)
)

func (s *TaskStore) CreateTask(ctx context.Context, t *queue.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs
			(id, queue, task_name, payload, status, priority, retry_count, max_retries, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Queue, t.TaskName, t.Payload, string(t.Status), int16(t.Priority),
		int16(t.RetryCount), int16(t.MaxRetries), t.ScheduledAt, t.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", queue.ErrTaskExists, t.ID)
	}
	return err
}

// ClaimTask locks one due task. SKIP LOCKED lets several workers poll the
// same queue without blocking each other. Tasks whose lock expired are
// claimable again.
func (s *TaskStore) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*queue.Task, error) {
	now := s.now()
	row := s.db.QueryRowContext(ctx,
		`UPDATE scheduled_jobs SET status = 'processing', locked_until = $1, locked_by = $2
		WHERE id = (
			SELECT id FROM scheduled_jobs
			WHERE queue = ANY($3)
				AND scheduled_at <= $4
				AND (status = 'pending' OR (status = 'processing' AND locked_until < $4))
			ORDER BY priority DESC, scheduled_at ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, task_name, payload, status, priority, retry_count, max_retries, scheduled_at, created_at`,
		now.Add(lockDuration), workerID, queues, now,
	)

	var (
		t                           queue.Task
		status                      string
		priority, retries, maxRetry int16
	)
	err := row.Scan(&t.ID, &t.Queue, &t.TaskName, &t.Payload, &status, &priority,
		&retries, &maxRetry, &t.ScheduledAt, &t.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, queue.ErrNoTaskToClaim
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}

	lockedUntil := now.Add(lockDuration)
	t.Status = queue.TaskStatus(status)
	t.Priority = queue.Priority(priority)
	t.RetryCount = int8(retries)
	t.MaxRetries = int8(maxRetry)
	t.LockedUntil = &lockedUntil
	t.LockedBy = &workerID
	return &t, nil
}

func (s *TaskStore) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	return s.exec(ctx, taskID,
		`UPDATE scheduled_jobs SET status = 'completed', processed_at = $2, locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'processing'`,
		taskID, s.now(),
	)
}

// FailTask counts the attempt and either reschedules the task or marks it failed.
func (s *TaskStore) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		var retries, maxRetries int16
		err := tx.QueryRowContext(ctx,
			`SELECT retry_count, max_retries FROM scheduled_jobs WHERE id = $1 AND status = 'processing' FOR UPDATE`,
			taskID,
		).Scan(&retries, &maxRetries)
		if pg.IsNotFoundError(err) {
			return fmt.Errorf("%w: %s", queue.ErrTaskNotClaimed, taskID)
		}
		if err != nil {
			return err
		}

		retries++
		if retries > maxRetries {
			_, err = tx.ExecContext(ctx,
				`UPDATE scheduled_jobs SET status = 'failed', retry_count = $2, error = $3, locked_until = NULL, locked_by = NULL
				WHERE id = $1`,
				taskID, retries, errorMsg,
			)
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE scheduled_jobs SET status = 'pending', retry_count = $2, error = $3, scheduled_at = $4,
				locked_until = NULL, locked_by = NULL
			WHERE id = $1`,
			taskID, retries, errorMsg, s.now().Add(s.backoff(int8(retries))),
		)
		return err
	})
}

func (s *TaskStore) MoveToDLQ(ctx context.Context, taskID uuid.UUID) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO scheduled_jobs_dlq (id, task_id, queue, task_name, payload, priority, error, retry_count, failed_at)
			SELECT $2, id, queue, task_name, payload, priority, COALESCE(error, ''), retry_count, $3
			FROM scheduled_jobs WHERE id = $1`,
			taskID, uuid.New(), s.now(),
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", queue.ErrTaskNotFound, taskID)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = $1`, taskID)
		return err
	})
}

func (s *TaskStore) ExtendLock(ctx context.Context, taskID uuid.UUID, d time.Duration) error {
	return s.exec(ctx, taskID,
		`UPDATE scheduled_jobs SET locked_until = $2 WHERE id = $1 AND status = 'processing'`,
		taskID, s.now().Add(d),
	)
}

// DeadLetters lists dead tasks of a queue, newest first.
func (s *TaskStore) DeadLetters(ctx context.Context, queueName string, limit int) ([]queue.DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, queue, task_name, payload, priority, error, retry_count, failed_at
		FROM scheduled_jobs_dlq WHERE queue = $1 ORDER BY failed_at DESC LIMIT $2`,
		queueName, max(limit, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []queue.DeadLetter
	for rows.Next() {
		var (
			d                 queue.DeadLetter
			priority, retries int16
		)
		if err := rows.Scan(&d.ID, &d.TaskID, &d.Queue, &d.TaskName, &d.Payload, &priority,
			&d.Error, &retries, &d.FailedAt); err != nil {
			return nil, err
		}
		d.Priority = queue.Priority(priority)
		d.RetryCount = int8(retries)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *TaskStore) exec(ctx context.Context, taskID uuid.UUID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", queue.ErrTaskNotClaimed, taskID)
	}
	return nil
}

func (s *TaskStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	return (&Store{db: s.db}).tx(ctx, fn)
}
