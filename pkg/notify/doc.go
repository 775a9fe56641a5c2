// Package notify is the notification dispatch engine: it turns application
// events into zero or more deliveries according to administrator-configured
// flows, honouring recipient preferences and per-flow conditions, deferring
// delayed flows to a durable queue, and auditing every attempt.
//
// The package is organised around a few small components:
//
//   - Controller: accepts events, resolves flows and runs each one to a terminal state
//   - Resolver: canonicalizes trigger names and orders active flows by priority
//   - Dispatcher: preference check, condition check, channel send, audit entry
//   - Scheduler: persists delayed flows as queue tasks instead of sending them
//   - Bus: fire-and-forget realtime broadcast of accepted events
//
// Persistence is reached through FlowStore, PreferenceStore, DeliveryLog and
// DeliveryReader. MemoryStore implements all of them for tests; the pgstore
// package provides the PostgreSQL backend.
//
// # Usage
//
//	store := notify.NewMemoryStore(notify.Flow{
//	    ID:             "upload-confirmation",
//	    EventType:      notify.EventSongUploaded,
//	    RecipientClass: notify.ClassArtist,
//	    Channel:        notify.ChannelEmail,
//	    TemplateID:     "upload_confirmation",
//	    Priority:       10,
//	    IsActive:       true,
//	})
//
//	dispatcher := notify.NewDispatcher(notify.NewPreferences(store), store,
//	    notify.WithChannel(notify.ChannelEmail, emailSender),
//	)
//	ctrl := notify.NewController(
//	    notify.NewResolver(store),
//	    dispatcher,
//	    notify.NewScheduler(enqueuer),
//	)
//
//	err := ctrl.Notify(ctx, notify.SongUploaded{SongID: "s1", SongTitle: "Night Drive"}, "artist-1", notify.ClassArtist)
//
// Trigger only returns validation errors (see IsValidationError). Storage and
// channel failures never escape; they are recorded as failed delivery log
// entries and logged.
//
// # Scheduled deliveries
//
// A flow with DelayMinutes > 0 is checked against preferences and its
// condition at trigger time and then stored as a queue task. The worker runs
// the handler returned by NewScheduledJobHandler, which reloads the flow and
// dispatches it if it is still active. The channel send happens only there.
package notify
