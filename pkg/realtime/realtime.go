package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/civicworks/notifyhub/pkg/notify"
)

// Publisher is a notify.Publisher that owns resources.
type Publisher interface {
	notify.Publisher
	Close() error
}

// Discard drops every message.
type Discard struct{}

func (Discard) Publish(context.Context, notify.BusMessage) error { return nil }
func (Discard) Close() error                                      { return nil }

// New builds the publisher selected by cfg. rdb is only used by the redis
// backend and may be nil otherwise.
func New(cfg Config, rdb redis.UniversalClient, log *slog.Logger) (Publisher, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(cfg.Buffer), nil
	case BackendNone:
		return Discard{}, nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis backend without a redis connection", ErrUnknownBackend)
		}
		return NewRedis(rdb, WithRedisPrefix(cfg.RedisPrefix), WithRedisLogger(log)), nil
	case BackendKafka:
		producer, err := NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		return NewKafka(producer, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
