package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/queue"
)

var errStoreDown = errors.New("store down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSender collects every message it is asked to send.
type recordingSender struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSender) Messages() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]notify.Message(nil), s.msgs...)
}

// taskRecorder is a queue.EnqueuerRepository that keeps created tasks.
type taskRecorder struct {
	mu    sync.Mutex
	tasks []*queue.Task
	err   error
}

func (r *taskRecorder) CreateTask(_ context.Context, task *queue.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *taskRecorder) Tasks() []*queue.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*queue.Task(nil), r.tasks...)
}

func decodeJob(t *testing.T, task *queue.Task) notify.ScheduledJob {
	t.Helper()

	var job notify.ScheduledJob
	require.NoError(t, json.Unmarshal(task.Payload, &job))
	return job
}

// brokenPreferences fails every preference read.
type brokenPreferences struct{}

func (brokenPreferences) FindPreference(context.Context, string, string, notify.Channel) (*notify.Preference, error) {
	return nil, errStoreDown
}

func (brokenPreferences) SetPreference(context.Context, notify.Preference) error {
	return errStoreDown
}

// brokenFlows fails every flow read.
type brokenFlows struct{}

func (brokenFlows) ListFlows(context.Context, string, notify.RecipientClass) ([]notify.Flow, error) {
	return nil, errStoreDown
}

func (brokenFlows) GetFlow(context.Context, string) (*notify.Flow, error) {
	return nil, errStoreDown
}

// recordingBroadcaster keeps every broadcast event.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []notify.Event
}

func (b *recordingBroadcaster) Broadcast(ev notify.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, ev)
}

func (b *recordingBroadcaster) Events() []notify.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]notify.Event(nil), b.events...)
}

// engine bundles a controller with the test doubles behind it.
type engine struct {
	store  *notify.MemoryStore
	email  *recordingSender
	push   *recordingSender
	inApp  *recordingSender
	tasks  *taskRecorder
	bus    *recordingBroadcaster
	ctrl   *notify.Controller
	disp   *notify.Dispatcher
	frozen time.Time
}

type engineConfig struct {
	prefs    notify.PreferenceStore
	flows    notify.FlowStore
	dispOpts []notify.DispatcherOption
	ctrlOpts []notify.ControllerOption
}

type engineOption func(*engineConfig)

func withPreferenceStore(p notify.PreferenceStore) engineOption {
	return func(c *engineConfig) { c.prefs = p }
}

func withFlowStore(f notify.FlowStore) engineOption {
	return func(c *engineConfig) { c.flows = f }
}

func withDispatcherOptions(opts ...notify.DispatcherOption) engineOption {
	return func(c *engineConfig) { c.dispOpts = append(c.dispOpts, opts...) }
}

func withControllerOptions(opts ...notify.ControllerOption) engineOption {
	return func(c *engineConfig) { c.ctrlOpts = append(c.ctrlOpts, opts...) }
}

func newEngine(t *testing.T, flows []notify.Flow, opts ...engineOption) *engine {
	t.Helper()

	e := &engine{
		store:  notify.NewMemoryStore(flows...),
		email:  &recordingSender{},
		push:   &recordingSender{},
		inApp:  &recordingSender{},
		tasks:  &taskRecorder{},
		bus:    &recordingBroadcaster{},
		frozen: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := &engineConfig{prefs: e.store, flows: e.store}
	for _, opt := range opts {
		opt(cfg)
	}

	dispOpts := append([]notify.DispatcherOption{
		notify.WithChannel(notify.ChannelEmail, e.email),
		notify.WithChannel(notify.ChannelPush, e.push),
		notify.WithChannel(notify.ChannelInApp, e.inApp),
		notify.WithDispatcherLogger(discardLogger()),
	}, cfg.dispOpts...)
	e.disp = notify.NewDispatcher(notify.NewPreferences(cfg.prefs), e.store, dispOpts...)

	enq, err := queue.NewEnqueuer(e.tasks)
	require.NoError(t, err)
	sched := notify.NewScheduler(enq, notify.WithSchedulerClock(func() time.Time { return e.frozen }))

	ctrlOpts := append([]notify.ControllerOption{
		notify.WithBroadcaster(e.bus),
		notify.WithAudience(e.store),
		notify.WithControllerLogger(discardLogger()),
	}, cfg.ctrlOpts...)
	e.ctrl = notify.NewController(notify.NewResolver(cfg.flows), e.disp, sched, ctrlOpts...)

	return e
}

func flow(id, eventType string, class notify.RecipientClass, ch notify.Channel, priority int) notify.Flow {
	return notify.Flow{
		ID:             id,
		EventType:      eventType,
		RecipientClass: class,
		Channel:        ch,
		TemplateID:     id + "_tpl",
		Priority:       priority,
		IsActive:       true,
	}
}

func flowIDs(entries []notify.DeliveryLogEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.FlowID)
	}
	return ids
}
