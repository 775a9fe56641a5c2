package pgstore

import (
	"context"
	"fmt"

	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/pg"
)

func (s *Store) FindPreference(ctx context.Context, recipientID, eventType string, channel notify.Channel) (*notify.Preference, error) {
	p := notify.Preference{RecipientID: recipientID, EventType: eventType, Channel: channel}
	err := s.db.QueryRowContext(ctx,
		`SELECT is_enabled FROM preferences WHERE recipient_id = $1 AND event_type = $2 AND channel = $3`,
		recipientID, eventType, string(channel),
	).Scan(&p.IsEnabled)
	if pg.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find preference: %w", err)
	}
	return &p, nil
}

func (s *Store) SetPreference(ctx context.Context, p notify.Preference) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (recipient_id, event_type, channel, is_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (recipient_id, event_type, channel)
		DO UPDATE SET is_enabled = EXCLUDED.is_enabled, updated_at = EXCLUDED.updated_at`,
		p.RecipientID, p.EventType, string(p.Channel), p.IsEnabled, s.now(),
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
