package channels

import (
	"context"
	"maps"

	"github.com/civicworks/notifyhub/pkg/inbox"
	"github.com/civicworks/notifyhub/pkg/notify"
)

// InboxWriter stores an in-app item. *inbox.Manager satisfies it.
type InboxWriter interface {
	Put(ctx context.Context, item inbox.Item) (inbox.Item, error)
}

// InApp delivers messages into the recipient's inbox.
type InApp struct {
	inbox InboxWriter
}

func NewInApp(w InboxWriter) *InApp {
	return &InApp{inbox: w}
}

func (c *InApp) Send(ctx context.Context, msg notify.Message) error {
	_, err := c.inbox.Put(ctx, inbox.Item{
		RecipientID: msg.RecipientID,
		EventType:   msg.EventType,
		TemplateID:  msg.TemplateID,
		Data:        maps.Clone(msg.Data),
	})
	return err
}
