package realtime

import (
	"context"

	"github.com/civicworks/notifyhub/pkg/broadcast"
	"github.com/civicworks/notifyhub/pkg/notify"
)

// Memory publishes bus messages to in-process subscribers, typically SSE
// handlers running in the same binary.
type Memory struct {
	b *broadcast.MemoryBroadcaster[notify.BusMessage]
}

func NewMemory(buffer int) *Memory {
	return &Memory{b: broadcast.NewMemoryBroadcaster[notify.BusMessage](buffer)}
}

func (m *Memory) Publish(ctx context.Context, msg notify.BusMessage) error {
	return m.b.Broadcast(ctx, broadcast.Message[notify.BusMessage]{Data: msg})
}

// Subscribe streams messages for recipientID, or all messages when it is
// empty, until ctx ends.
func (m *Memory) Subscribe(ctx context.Context, recipientID string) broadcast.Subscriber[notify.BusMessage] {
	if recipientID == "" {
		return m.b.Subscribe(ctx)
	}
	return m.b.Subscribe(ctx, broadcast.WithFilter(func(msg notify.BusMessage) bool {
		return msg.RecipientID == recipientID
	}))
}

// Dropped reports deliveries lost to slow subscribers.
func (m *Memory) Dropped() uint64 {
	return m.b.Dropped()
}

func (m *Memory) Close() error {
	return m.b.Close()
}
