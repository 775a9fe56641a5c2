// Package broadcast fans typed messages out to in-process subscribers.
//
// It backs the live inbox feed and the in-memory realtime publisher.
// Broadcast never blocks: a subscriber that cannot keep up is disconnected.
//
//	b := broadcast.NewMemoryBroadcaster[Notice](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx, broadcast.WithFilter(func(n Notice) bool {
//	    return n.RecipientID == recipientID
//	}))
//	for msg := range sub.Receive(ctx) {
//	    render(msg.Data)
//	}
package broadcast
