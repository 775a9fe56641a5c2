package hub

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/civicworks/notifyhub/pkg/channels"
	"github.com/civicworks/notifyhub/pkg/email"
	"github.com/civicworks/notifyhub/pkg/inbox"
	"github.com/civicworks/notifyhub/pkg/logger"
	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/pgstore"
	"github.com/civicworks/notifyhub/pkg/queue"
	"github.com/civicworks/notifyhub/pkg/realtime"
)

// TaskRepository stores scheduled jobs for both the enqueuer and the worker.
type TaskRepository interface {
	queue.EnqueuerRepository
	queue.WorkerRepository
}

// Hub is the assembled notification engine.
type Hub struct {
	Controller *notify.Controller
	Dispatcher *notify.Dispatcher
	Scheduler  *notify.Scheduler
	Resolver   *notify.Resolver
	Store      notify.Store
	Audience   notify.Audience
	Inbox      *inbox.Manager
	Live       *inbox.LiveFeed
	Realtime   realtime.Publisher
	Bus        *notify.Bus
	Tasks      TaskRepository

	cfg     Config
	logger  *slog.Logger
	closers []func() error
}

type options struct {
	db        *sql.DB
	redis     redis.UniversalClient
	logger    *slog.Logger
	addresses channels.AddressBook
	mailer    email.EmailSender
	templates *channels.Templates
	senders   map[notify.Channel]notify.ChannelSender
	audience  notify.Audience
}

type Option func(*options)

// WithDB switches storage from memory to Postgres.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithRedis enables shared deduplication and the redis realtime backend.
func WithRedis(rdb redis.UniversalClient) Option {
	return func(o *options) { o.redis = rdb }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAddressBook sets the email address lookup. Without one, recipient
// ids that look like email addresses are used as-is.
func WithAddressBook(a channels.AddressBook) Option {
	return func(o *options) { o.addresses = a }
}

// WithEmailSender overrides the sender built from Config.Email.
func WithEmailSender(s email.EmailSender) Option {
	return func(o *options) { o.mailer = s }
}

// WithTemplates overrides the templates loaded from Config.TemplatesPath.
func WithTemplates(t *channels.Templates) Option {
	return func(o *options) { o.templates = t }
}

// WithChannelSender registers or replaces the sender of one channel.
func WithChannelSender(ch notify.Channel, s notify.ChannelSender) Option {
	return func(o *options) { o.senders[ch] = s }
}

// WithAudience overrides the store as follower and admin source.
func WithAudience(a notify.Audience) Option {
	return func(o *options) { o.audience = a }
}

// New builds the engine. Infrastructure handles come in through options;
// the hub never dials databases itself.
func New(ctx context.Context, cfg Config, opts ...Option) (*Hub, error) {
	o := &options{
		logger:  slog.Default(),
		senders: make(map[notify.Channel]notify.ChannelSender),
	}
	for _, opt := range opts {
		opt(o)
	}

	h := &Hub{cfg: cfg, logger: o.logger.With(logger.Component("hub"))}
	if err := h.build(ctx, o); err != nil {
		return nil, errors.Join(err, h.Close())
	}
	return h, nil
}

func (h *Hub) build(ctx context.Context, o *options) error {
	catalog, err := h.loadCatalog()
	if err != nil {
		return err
	}

	resolverOpts, err := h.buildStore(ctx, o, catalog)
	if err != nil {
		return err
	}
	if o.audience != nil {
		h.Audience = o.audience
	}

	if err := h.buildRealtime(o); err != nil {
		return err
	}
	h.buildInbox()

	senders, err := h.buildChannels(o)
	if err != nil {
		return err
	}

	dispatcherOpts := append(h.cfg.Notify.DispatcherOptions(), notify.WithDispatcherLogger(o.logger))
	for ch, s := range senders {
		dispatcherOpts = append(dispatcherOpts, notify.WithChannel(ch, s))
	}
	h.Dispatcher = notify.NewDispatcher(notify.NewPreferences(h.Store), h.Store, dispatcherOpts...)
	h.Resolver = notify.NewResolver(h.Store, resolverOpts...)

	enq, err := queue.NewEnqueuer(h.Tasks, queue.WithDefaultQueue(h.scheduleQueue()))
	if err != nil {
		return err
	}
	h.Scheduler = notify.NewScheduler(enq, append(h.cfg.Notify.SchedulerOptions(), notify.WithScheduleQueue(h.scheduleQueue()))...)

	controllerOpts := append(h.cfg.Notify.ControllerOptions(),
		notify.WithBroadcaster(h.Bus),
		notify.WithAudience(h.Audience),
		notify.WithControllerLogger(o.logger),
	)
	if h.cfg.DedupEnabled {
		controllerOpts = append(controllerOpts, notify.WithDeduper(h.deduper(o), h.cfg.Notify.DedupTTL))
	}
	h.Controller = notify.NewController(h.Resolver, h.Dispatcher, h.Scheduler, controllerOpts...)
	return nil
}

func (h *Hub) loadCatalog() (*notify.Catalog, error) {
	if h.cfg.Notify.CatalogPath == "" {
		return nil, nil
	}
	return notify.LoadCatalogFile(h.cfg.Notify.CatalogPath)
}

func (h *Hub) buildStore(ctx context.Context, o *options, catalog *notify.Catalog) ([]notify.ResolverOption, error) {
	var resolverOpts []notify.ResolverOption

	if o.db == nil {
		store := notify.NewMemoryStore()
		if catalog != nil {
			catalog.Apply(store)
			resolverOpts = catalog.ResolverOptions()
		}
		tasks := queue.NewMemoryStorage()
		h.closers = append(h.closers, tasks.Close)

		h.Store, h.Audience, h.Tasks = store, store, tasks
		h.logger.LogAttrs(ctx, slog.LevelInfo, "using in-memory storage")
		return resolverOpts, nil
	}

	store := pgstore.New(o.db, pgstore.WithLogger(o.logger))
	if catalog != nil {
		if err := store.ApplyCatalog(ctx, catalog); err != nil {
			return nil, fmt.Errorf("apply flow catalog: %w", err)
		}
	}
	aliases, err := store.Aliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trigger aliases: %w", err)
	}
	if len(aliases) > 0 {
		resolverOpts = append(resolverOpts, notify.WithExtraAliases(aliases))
	}

	h.Store, h.Audience, h.Tasks = store, store, pgstore.NewTaskStore(o.db)
	return resolverOpts, nil
}

func (h *Hub) buildRealtime(o *options) error {
	pub, err := realtime.New(h.cfg.Realtime, o.redis, o.logger)
	if err != nil {
		return err
	}
	h.Realtime = pub
	h.Bus = notify.NewBus(pub,
		notify.WithBusBuffer(h.cfg.Notify.BusBuffer),
		notify.WithBusLogger(o.logger),
	)
	// Closed in reverse, so the bus drains before the publisher goes away.
	h.closers = append(h.closers, pub.Close, h.Bus.Close)
	return nil
}

func (h *Hub) buildInbox() {
	h.Live = inbox.NewLiveFeed(h.cfg.InboxLiveBuffer, inbox.WithFeedLogger(h.logger))
	h.Inbox = inbox.NewManager(inbox.NewMemoryStorage(),
		inbox.WithLiveDeliverer(h.Live),
		inbox.WithItemTTL(h.cfg.InboxTTL),
		inbox.WithManagerLogger(h.logger),
	)
	h.closers = append(h.closers, h.Live.Close)
}

func (h *Hub) buildChannels(o *options) (map[notify.Channel]notify.ChannelSender, error) {
	senders := map[notify.Channel]notify.ChannelSender{
		notify.ChannelInApp: channels.NewInApp(h.Inbox),
	}

	mailer := o.mailer
	if mailer == nil {
		var err error
		if mailer, err = email.NewSender(h.cfg.Email); err != nil {
			return nil, err
		}
	}
	templates := o.templates
	if templates == nil {
		templates = channels.NewTemplates()
		if h.cfg.TemplatesPath != "" {
			var err error
			if templates, err = channels.LoadTemplatesFile(h.cfg.TemplatesPath); err != nil {
				return nil, err
			}
		}
	}
	addresses := o.addresses
	if addresses == nil {
		addresses = channels.AddressBookFunc(addressFromID)
	}
	senders[notify.ChannelEmail] = channels.NewEmail(mailer, addresses, templates)

	for ch, url := range map[notify.Channel]string{
		notify.ChannelPush: h.cfg.Gateways.PushURL,
		notify.ChannelSMS:  h.cfg.Gateways.SMSURL,
	} {
		if url == "" {
			continue
		}
		// Each gateway gets its own breaker from Options.
		gw, err := channels.NewGateway(url, append(h.cfg.Gateways.Options(), channels.WithGatewayLogger(h.logger))...)
		if err != nil {
			return nil, fmt.Errorf("%s gateway: %w", ch, err)
		}
		if limit := h.cfg.Notify.SendTimeout; limit > 0 && gw.Budget() > limit {
			h.logger.LogAttrs(context.Background(), slog.LevelWarn, "gateway retries do not fit in the send timeout",
				logger.Channel(string(ch)),
				slog.Duration("budget", gw.Budget()),
				slog.Duration("send_timeout", limit),
			)
		}
		senders[ch] = gw
	}

	for ch, s := range o.senders {
		senders[ch] = s
	}
	return senders, nil
}

func (h *Hub) deduper(o *options) notify.Deduper {
	if o.redis != nil {
		return notify.NewRedisDeduper(o.redis, h.cfg.DedupPrefix)
	}
	return notify.NewMemoryDeduper(0)
}

// NewWorker returns a worker consuming the scheduled job queue.
func (h *Hub) NewWorker(opts ...queue.WorkerOption) (*queue.Worker, error) {
	opts = append(append(h.cfg.Queue.WorkerOptions(),
		queue.WithQueues(h.scheduleQueue()),
		queue.WithWorkerLogger(h.logger),
	), opts...)

	w, err := queue.NewWorker(h.Tasks, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.RegisterHandler(notify.NewScheduledJobHandler(h.Store, h.Dispatcher)); err != nil {
		return nil, err
	}
	return w, nil
}

// Close releases what the hub created, in reverse order of creation.
// Handles passed in through options are left to the caller.
func (h *Hub) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

func (h *Hub) scheduleQueue() string {
	return cmp.Or(h.cfg.Notify.ScheduleQueue, notify.DefaultScheduleQueue)
}

func addressFromID(_ context.Context, recipientID string) (string, error) {
	if strings.Contains(recipientID, "@") {
		return recipientID, nil
	}
	return "", nil
}
