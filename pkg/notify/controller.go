package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/civicworks/notifyhub/pkg/async"
	"github.com/civicworks/notifyhub/pkg/logger"
)

// ErrNoAudience is returned by fan-out helpers when no Audience is configured.
var ErrNoAudience = errors.New("notify: no audience source configured")

// OutcomeHook observes the terminal state of every flow processed by Trigger.
type OutcomeHook func(ctx context.Context, ev Event, flow Flow, outcome Outcome)

// Controller is the entry point applications emit events into.
// It is safe for concurrent use; no state is shared between Trigger calls.
type Controller struct {
	resolver   *Resolver
	dispatcher *Dispatcher
	scheduler  *Scheduler
	bus        Broadcaster
	audience   Audience
	dedup      Deduper
	dedupTTL   time.Duration
	parallel   bool
	fanout     int
	hook       OutcomeHook
	logger     *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithBroadcaster sets the realtime broadcaster. Defaults to NoopBroadcaster.
func WithBroadcaster(b Broadcaster) ControllerOption {
	return func(c *Controller) {
		if b != nil {
			c.bus = b
		}
	}
}

// WithAudience sets the source used by NotifyFollowers and NotifyAdmins.
func WithAudience(a Audience) ControllerOption {
	return func(c *Controller) {
		c.audience = a
	}
}

// WithDeduper enables deduplication of events carrying a Key.
func WithDeduper(d Deduper, ttl time.Duration) ControllerOption {
	return func(c *Controller) {
		c.dedup = d
		if ttl > 0 {
			c.dedupTTL = ttl
		}
	}
}

// WithParallelFlows runs the flows of one event concurrently. Log entries are
// still written once per flow, but their order no longer follows priority.
func WithParallelFlows(enabled bool) ControllerOption {
	return func(c *Controller) {
		c.parallel = enabled
	}
}

// WithFanoutConcurrency bounds how many recipient pipelines fan-out helpers run at once.
func WithFanoutConcurrency(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.fanout = n
		}
	}
}

// WithOutcomeHook registers an observer for per-flow outcomes.
func WithOutcomeHook(h OutcomeHook) ControllerOption {
	return func(c *Controller) {
		c.hook = h
	}
}

// WithControllerLogger sets the logger for the Controller.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController wires the resolver, dispatcher and scheduler together.
func NewController(resolver *Resolver, dispatcher *Dispatcher, scheduler *Scheduler, opts ...ControllerOption) *Controller {
	c := &Controller{
		resolver:   resolver,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		bus:        NoopBroadcaster{},
		dedupTTL:   DefaultDedupTTL,
		fanout:     8,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trigger validates ev and runs every active matching flow to a terminal state.
//
// Only validation failures are returned; nothing is persisted in that case.
// Storage and channel failures are isolated per flow and recorded in the
// delivery log. Accepted events are broadcast exactly once regardless of
// per-flow outcomes. Caller cancellation does not abort flows in progress.
func (c *Controller) Trigger(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	raw := ev.Type
	ev.Type = c.resolver.Canonicalize(raw)

	flows, err := c.resolver.Resolve(ctx, raw, ev.RecipientClass)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "failed to resolve flows",
			logger.EventType(ev.Type),
			logger.RecipientID(ev.RecipientID),
			logger.Error(err),
		)
		// The key stays unclaimed so a retry of the same event is processed.
		c.bus.Broadcast(ev)
		return nil
	}

	if c.duplicate(ctx, ev) {
		return nil
	}
	defer c.bus.Broadcast(ev)

	data := templateData(ev)
	if c.parallel && len(flows) > 1 {
		c.runParallel(ctx, ev, flows, data)
		return nil
	}
	for _, flow := range flows {
		c.run(ctx, ev, flow, data)
	}
	return nil
}

// duplicate claims the event key and reports whether it was already claimed.
// A failing deduper lets the event through.
func (c *Controller) duplicate(ctx context.Context, ev Event) bool {
	if ev.Key == "" || c.dedup == nil {
		return false
	}
	fresh, err := c.dedup.Claim(ctx, ev.Key, c.dedupTTL)
	switch {
	case err != nil:
		c.logger.LogAttrs(ctx, slog.LevelWarn, "dedup lookup failed, processing event",
			logger.EventType(ev.Type),
			slog.String("event_key", ev.Key),
			logger.Error(err),
		)
		return false
	case !fresh:
		c.logger.LogAttrs(ctx, slog.LevelInfo, "duplicate event ignored",
			logger.EventType(ev.Type),
			slog.String("event_key", ev.Key),
		)
		return true
	}
	return false
}

func (c *Controller) runParallel(ctx context.Context, ev Event, flows []Flow, data TemplateData) {
	futures := make([]*async.Future[Outcome], 0, len(flows))
	for _, flow := range flows {
		futures = append(futures, async.Async(ctx, flow, func(ctx context.Context, f Flow) (Outcome, error) {
			return c.run(ctx, ev, f, data), nil
		}))
	}
	_, _ = async.Settle(futures...)
}

// run takes one flow from PENDING to a terminal outcome.
func (c *Controller) run(ctx context.Context, ev Event, flow Flow, data TemplateData) Outcome {
	var outcome Outcome
	if flow.Delay() > 0 {
		outcome = c.schedule(ctx, ev, flow, data)
	} else {
		outcome = outcomeOf(c.dispatcher.Dispatch(ctx, ev, flow, data))
	}
	if c.hook != nil {
		c.hook(ctx, ev, flow, outcome)
	}
	return outcome
}

// schedule applies the same admission checks as an immediate dispatch before
// persisting the job, so opted-out recipients never get a job written.
func (c *Controller) schedule(ctx context.Context, ev Event, flow Flow, data TemplateData) Outcome {
	d := c.dispatcher
	if reason := d.admit(ctx, ev, flow); reason != "" {
		return outcomeOf(d.record(ctx, d.entry(ev, flow, data, StatusSkipped, reason, nil)))
	}

	job, err := c.scheduler.Schedule(ctx, ev, flow, data)
	if err != nil {
		return outcomeOf(d.record(ctx, d.entry(ev, flow, data, StatusFailed, "", err)))
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "delivery scheduled",
		logger.FlowID(flow.ID),
		logger.RecipientID(ev.RecipientID),
		logger.Channel(string(flow.Channel)),
		slog.String("job_id", job.ID),
		slog.Time("scheduled_at", job.ScheduledAt),
	)
	return OutcomeScheduled
}

func outcomeOf(e DeliveryLogEntry) Outcome {
	switch {
	case e.Status == StatusSent:
		return OutcomeSent
	case e.Status == StatusSkipped && e.Reason == ReasonConditionNotMet:
		return OutcomeSkippedCondition
	case e.Status == StatusSkipped:
		return OutcomeSkippedPreference
	default:
		return OutcomeFailed
	}
}

// Notify triggers kind for a single recipient.
func (c *Controller) Notify(ctx context.Context, kind Kind, recipientID string, class RecipientClass) error {
	return c.Trigger(ctx, NewEvent(kind, recipientID, class))
}

// NotifyMany triggers kind once per recipient. Each recipient's pipeline runs
// independently; validation errors are joined and returned after all ran.
func (c *Controller) NotifyMany(ctx context.Context, kind Kind, recipients []Recipient) error {
	ctx = context.WithoutCancel(ctx)
	sem := make(chan struct{}, c.fanout)

	futures := make([]*async.Future[struct{}], 0, len(recipients))
	for _, r := range recipients {
		// Take the slot before starting the goroutine so at most fanout
		// goroutines exist at once.
		sem <- struct{}{}
		futures = append(futures, async.Async(ctx, r, func(ctx context.Context, r Recipient) (struct{}, error) {
			defer func() { <-sem }()
			return struct{}{}, c.Trigger(ctx, NewEvent(kind, r.ID, r.Class))
		}))
	}

	_, err := async.Settle(futures...)
	return err
}

// NotifyFollowers triggers kind for everyone following entityID.
func (c *Controller) NotifyFollowers(ctx context.Context, kind Kind, entityID string) error {
	if c.audience == nil {
		return ErrNoAudience
	}
	followers, err := c.audience.Followers(ctx, entityID)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return c.NotifyMany(ctx, kind, followers)
}

// NotifyAdmins triggers kind for the administrator audience.
func (c *Controller) NotifyAdmins(ctx context.Context, kind Kind) error {
	if c.audience == nil {
		return ErrNoAudience
	}
	admins, err := c.audience.Admins(ctx)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return c.NotifyMany(ctx, kind, admins)
}
