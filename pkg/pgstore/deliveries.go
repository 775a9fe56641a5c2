package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/civicworks/notifyhub/pkg/notify"
)

// AppendDelivery inserts one audit row. Rows are never updated.
func (s *Store) AppendDelivery(ctx context.Context, e notify.DeliveryLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	data, err := marshalJSON(e.TemplateData)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO delivery_log
			(id, flow_id, recipient_id, event_type, channel, status, template_data, reason, error, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.FlowID, e.RecipientID, e.EventType, string(e.Channel), string(e.Status),
		data, e.Reason, e.Error, e.SentAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns entries newest first.
func (s *Store) ListDeliveries(ctx context.Context, f notify.DeliveryFilter) ([]notify.DeliveryLogEntry, error) {
	query, args := deliveryQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []notify.DeliveryLogEntry
	for rows.Next() {
		var (
			e      notify.DeliveryLogEntry
			ch     string
			status string
			data   []byte
			sentAt sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.FlowID, &e.RecipientID, &e.EventType, &ch, &status,
			&data, &e.Reason, &e.Error, &sentAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Channel = notify.Channel(ch)
		e.Status = notify.DeliveryStatus(status)
		if sentAt.Valid {
			t := sentAt.Time
			e.SentAt = &t
		}
		if e.TemplateData, err = unmarshalJSON(data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func deliveryQuery(f notify.DeliveryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" $"+strconv.Itoa(len(args)))
	}
	if f.RecipientID != "" {
		add("recipient_id =", f.RecipientID)
	}
	if f.FlowID != "" {
		add("flow_id =", f.FlowID)
	}
	if f.EventType != "" {
		add("event_type =", f.EventType)
	}
	if f.Status != "" {
		add("status =", string(f.Status))
	}
	if f.Since != nil {
		add("created_at >=", *f.Since)
	}

	var b strings.Builder
	b.WriteString(`SELECT id, flow_id, recipient_id, event_type, channel, status, template_data, reason, error, sent_at, created_at FROM delivery_log`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}
