package channels

import (
	"context"
	"fmt"

	"github.com/civicworks/notifyhub/pkg/email"
	"github.com/civicworks/notifyhub/pkg/notify"
)

// AddressBook resolves a recipient id to an email address.
type AddressBook interface {
	EmailAddress(ctx context.Context, recipientID string) (string, error)
}

// AddressBookFunc adapts a function to AddressBook.
type AddressBookFunc func(ctx context.Context, recipientID string) (string, error)

func (f AddressBookFunc) EmailAddress(ctx context.Context, recipientID string) (string, error) {
	return f(ctx, recipientID)
}

// Email renders the flow's template and hands it to an email.EmailSender.
type Email struct {
	sender    email.EmailSender
	addresses AddressBook
	templates *Templates
}

func NewEmail(sender email.EmailSender, addresses AddressBook, templates *Templates) *Email {
	return &Email{sender: sender, addresses: addresses, templates: templates}
}

func (e *Email) Send(ctx context.Context, msg notify.Message) error {
	to, err := e.addresses.EmailAddress(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("lookup address for %s: %w", msg.RecipientID, err)
	}
	if to == "" {
		return fmt.Errorf("%w: %s", ErrNoAddress, msg.RecipientID)
	}

	subject, body, err := e.templates.Render(msg.TemplateID, msg.Data)
	if err != nil {
		return err
	}

	return e.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body,
		Tag:      msg.TemplateID,
	})
}
