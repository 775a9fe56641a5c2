package notify

import (
	"context"
	"errors"

	"github.com/civicworks/notifyhub/pkg/queue"
)

// NewScheduledJobHandler returns the queue handler that fires scheduled jobs.
// The flow is reloaded so that flows deactivated or deleted after scheduling
// are skipped. Every job produces a fresh delivery log entry; the handler
// itself only fails on malformed payloads.
func NewScheduledJobHandler(flows FlowStore, d *Dispatcher) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, job ScheduledJob) error {
		return d.DispatchScheduled(ctx, flows, job)
	})
}

// DispatchScheduled delivers a job whose fire time has come.
func (d *Dispatcher) DispatchScheduled(ctx context.Context, flows FlowStore, job ScheduledJob) error {
	ev := job.Event()
	fallback := Flow{ID: job.FlowID, EventType: job.EventType, RecipientClass: job.RecipientClass, Channel: job.Channel, TemplateID: job.TemplateID}

	flow, err := flows.GetFlow(ctx, job.FlowID)
	switch {
	case errors.Is(err, ErrFlowNotFound):
		d.record(ctx, d.entry(ev, fallback, job.TemplateData, StatusSkipped, ReasonFlowInactive, nil))
		return nil
	case err != nil:
		d.record(ctx, d.entry(ev, fallback, job.TemplateData, StatusFailed, "", errors.Join(ErrStorage, err)))
		return nil
	case !flow.IsActive:
		d.record(ctx, d.entry(ev, *flow, job.TemplateData, StatusSkipped, ReasonFlowInactive, nil))
		return nil
	}

	d.Dispatch(ctx, ev, *flow, job.TemplateData)
	return nil
}
