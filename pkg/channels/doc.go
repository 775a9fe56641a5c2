// Package channels holds the notify.ChannelSender implementations.
//
// Email renders a template by the flow's template id and sends it through
// pkg/email. Gateway posts push and SMS messages to HTTP gateways through
// pkg/webhook. InApp writes into the recipient's inbox (pkg/inbox), which
// also pushes the item to live subscribers.
//
//	dispatcher := notify.NewDispatcher(prefs, store,
//	    notify.WithChannel(notify.ChannelEmail, channels.NewEmail(sender, book, tpl)),
//	    notify.WithChannel(notify.ChannelInApp, channels.NewInApp(inboxManager)),
//	)
package channels
