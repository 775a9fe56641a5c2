package notify

import "context"

// Message is what a channel sender receives for one flow and recipient.
type Message struct {
	Channel     Channel      `json:"channel"`
	RecipientID string       `json:"recipient_id"`
	EventType   string       `json:"event_type"`
	TemplateID  string       `json:"template_id"`
	Data        TemplateData `json:"data"`
}

// ChannelSender delivers a message over one medium. Implementations should
// honour ctx cancellation; the dispatcher abandons sends that outlive it.
type ChannelSender interface {
	Send(ctx context.Context, msg Message) error
}

// ChannelFunc adapts a function to ChannelSender.
type ChannelFunc func(ctx context.Context, msg Message) error

func (f ChannelFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
