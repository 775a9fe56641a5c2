package pgstore

import (
	"context"
	"fmt"

	"github.com/civicworks/notifyhub/pkg/notify"
)

func (s *Store) Followers(ctx context.Context, entityID string) ([]notify.Recipient, error) {
	return s.recipients(ctx,
		`SELECT r.id, r.class FROM follows f JOIN recipients r ON r.id = f.follower_id
		WHERE f.entity_id = $1 ORDER BY f.created_at ASC, r.id ASC`,
		entityID,
	)
}

func (s *Store) Admins(ctx context.Context) ([]notify.Recipient, error) {
	return s.recipients(ctx, `SELECT id, class FROM recipients WHERE class = $1 ORDER BY id`, string(notify.ClassAdmin))
}

// AddFollower registers follower as following entityID, creating the recipient if needed.
func (s *Store) AddFollower(ctx context.Context, entityID string, follower notify.Recipient) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients (id, class) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		follower.ID, string(follower.Class),
	); err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO follows (entity_id, follower_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		entityID, follower.ID, s.now(),
	); err != nil {
		return fmt.Errorf("save follow: %w", err)
	}
	return nil
}

func (s *Store) recipients(ctx context.Context, query string, args ...any) ([]notify.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []notify.Recipient
	for rows.Next() {
		var r notify.Recipient
		var class string
		if err := rows.Scan(&r.ID, &class); err != nil {
			return nil, err
		}
		r.Class = notify.RecipientClass(class)
		out = append(out, r)
	}
	return out, rows.Err()
}
