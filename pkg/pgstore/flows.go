package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/pg"
)

const flowColumns = `id, event_type, recipient_class, channel, template_id, priority, delay_minutes, condition, is_active`

// ListFlows returns active flows in creation order. Equal priorities keep
// this order after the resolver's stable sort.
func (s *Store) ListFlows(ctx context.Context, eventType string, class notify.RecipientClass) ([]notify.Flow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flowColumns+` FROM flows
		WHERE event_type = $1 AND recipient_class = $2 AND is_active
		ORDER BY created_at ASC, id ASC`,
		eventType, string(class),
	)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	var out []notify.Flow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetFlow(ctx context.Context, flowID string) (*notify.Flow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+flowColumns+` FROM flows WHERE id = $1`, flowID)
	f, err := scanFlow(row)
	if pg.IsNotFoundError(err) {
		return nil, notify.ErrFlowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertFlow inserts a flow or updates it in place, keeping created_at.
func (s *Store) UpsertFlow(ctx context.Context, f notify.Flow) error {
	cond, err := marshalJSON(f.Condition)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flows (`+flowColumns+`, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (id) DO UPDATE SET
			event_type = EXCLUDED.event_type,
			recipient_class = EXCLUDED.recipient_class,
			channel = EXCLUDED.channel,
			template_id = EXCLUDED.template_id,
			priority = EXCLUDED.priority,
			delay_minutes = EXCLUDED.delay_minutes,
			condition = EXCLUDED.condition,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		f.ID, f.EventType, string(f.RecipientClass), string(f.Channel), f.TemplateID,
		f.Priority, f.DelayMinutes, cond, f.IsActive, s.now(),
	)
	if err != nil {
		return fmt.Errorf("upsert flow %s: %w", f.ID, err)
	}
	return nil
}

// SetFlowActive toggles a flow without touching its definition.
func (s *Store) SetFlowActive(ctx context.Context, flowID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE flows SET is_active = $2, updated_at = $3 WHERE id = $1`,
		flowID, active, s.now(),
	)
	if err != nil {
		return fmt.Errorf("set flow %s active: %w", flowID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notify.ErrFlowNotFound
	}
	return nil
}

// Aliases loads the trigger alias table.
func (s *Store) Aliases(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias, event_type FROM trigger_aliases`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var alias, eventType string
		if err := rows.Scan(&alias, &eventType); err != nil {
			return nil, err
		}
		out[alias] = eventType
	}
	return out, rows.Err()
}

// SaveAliases upserts trigger aliases in one transaction.
func (s *Store) SaveAliases(ctx context.Context, aliases map[string]string) error {
	if len(aliases) == 0 {
		return nil
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		for alias, eventType := range aliases {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO trigger_aliases (alias, event_type) VALUES ($1, $2)
				ON CONFLICT (alias) DO UPDATE SET event_type = EXCLUDED.event_type`,
				alias, eventType,
			); err != nil {
				return fmt.Errorf("save alias %s: %w", alias, err)
			}
		}
		return nil
	})
}

// ApplyCatalog writes the catalog flows and aliases.
func (s *Store) ApplyCatalog(ctx context.Context, c *notify.Catalog) error {
	for _, f := range c.Flows {
		if err := s.UpsertFlow(ctx, f); err != nil {
			return err
		}
	}
	return s.SaveAliases(ctx, c.Aliases)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlow(row scanner) (notify.Flow, error) {
	var (
		f     notify.Flow
		class string
		ch    string
		cond  []byte
	)
	if err := row.Scan(&f.ID, &f.EventType, &class, &ch, &f.TemplateID,
		&f.Priority, &f.DelayMinutes, &cond, &f.IsActive); err != nil {
		return notify.Flow{}, err
	}
	f.RecipientClass = notify.RecipientClass(class)
	f.Channel = notify.Channel(ch)

	c, err := unmarshalJSON(cond)
	if err != nil {
		return notify.Flow{}, fmt.Errorf("flow %s condition: %w", f.ID, err)
	}
	f.Condition = c
	return f, nil
}
