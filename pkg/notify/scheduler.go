package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/civicworks/notifyhub/pkg/queue"
)

// DefaultScheduleQueue is the queue name scheduled jobs are enqueued to.
const DefaultScheduleQueue = "notifications"

// Enqueuer persists deferred work. *queue.Enqueuer satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// Scheduler persists deferred deliveries instead of dispatching them.
type Scheduler struct {
	enqueuer   Enqueuer
	queueName  string
	maxRetries int8
	now        func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithScheduleQueue sets the queue scheduled jobs are written to.
func WithScheduleQueue(name string) SchedulerOption {
	return func(s *Scheduler) {
		if name != "" {
			s.queueName = name
		}
	}
}

// WithScheduleRetries sets how many times the worker retries a job whose
// handler returned an error.
func WithScheduleRetries(n int8) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithSchedulerClock overrides the wall clock.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler creates a scheduler writing through enqueuer.
func NewScheduler(enqueuer Enqueuer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		enqueuer:   enqueuer,
		queueName:  DefaultScheduleQueue,
		maxRetries: 3,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule persists a job firing at now + flow.DelayMinutes. It never
// dispatches. Repeated calls for the same event create repeated jobs.
func (s *Scheduler) Schedule(ctx context.Context, ev Event, flow Flow, data TemplateData) (ScheduledJob, error) {
	now := s.now()
	job := ScheduledJob{
		ID:             uuid.New().String(),
		FlowID:         flow.ID,
		RecipientID:    ev.RecipientID,
		RecipientClass: ev.RecipientClass,
		EventType:      ev.Type,
		Channel:        flow.Channel,
		TemplateID:     flow.TemplateID,
		TemplateData:   data,
		Metadata:       ev.Metadata,
		ScheduledAt:    now.Add(flow.Delay()),
		CreatedAt:      now,
	}

	err := s.enqueuer.Enqueue(ctx, job,
		queue.WithQueue(s.queueName),
		queue.WithScheduledAt(job.ScheduledAt),
		queue.WithPriority(queuePriority(flow.Priority)),
		queue.WithMaxRetries(s.maxRetries),
	)
	if err != nil {
		return ScheduledJob{}, errors.Join(ErrStorage, err)
	}
	return job, nil
}

// queuePriority clamps a flow priority into the queue's 0-100 range.
func queuePriority(p int) queue.Priority {
	return queue.Priority(min(max(p, int(queue.PriorityMin)), int(queue.PriorityMax)))
}
