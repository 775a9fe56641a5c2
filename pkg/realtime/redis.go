package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/civicworks/notifyhub/pkg/logger"
	"github.com/civicworks/notifyhub/pkg/notify"
)

// Redis publishes bus messages as JSON on one pub/sub channel per recipient,
// so listeners in other processes can follow a single recipient.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

type RedisOption func(*Redis)

func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: "notify:live:", logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Channel returns the pub/sub channel for recipientID.
func (r *Redis) Channel(recipientID string) string {
	return r.prefix + recipientID
}

func (r *Redis) Publish(ctx context.Context, msg notify.BusMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	if err := r.client.Publish(ctx, r.Channel(msg.RecipientID), payload).Err(); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

// Subscribe follows recipientID until ctx ends. The returned channel is closed
// when the subscription stops. Undecodable payloads are logged and skipped.
func (r *Redis) Subscribe(ctx context.Context, recipientID string) (<-chan notify.BusMessage, error) {
	ps := r.client.Subscribe(ctx, r.Channel(recipientID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Join(ErrPublish, err)
	}

	out := make(chan notify.BusMessage)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg notify.BusMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					r.logger.LogAttrs(ctx, slog.LevelWarn, "skipping undecodable realtime message",
						slog.String("channel", raw.Channel),
						logger.Error(errors.Join(ErrDecode, err)),
					)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the client belongs to the caller.
func (r *Redis) Close() error { return nil }
