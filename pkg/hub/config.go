package hub

import (
	"time"

	"github.com/civicworks/notifyhub/pkg/channels"
	"github.com/civicworks/notifyhub/pkg/email"
	"github.com/civicworks/notifyhub/pkg/notify"
	"github.com/civicworks/notifyhub/pkg/pg"
	"github.com/civicworks/notifyhub/pkg/queue"
	"github.com/civicworks/notifyhub/pkg/realtime"
	"github.com/civicworks/notifyhub/pkg/redis"
)

// Config gathers the settings of every component. Nested structs are parsed
// from the environment with their own tags.
type Config struct {
	Notify   notify.Config
	Queue    queue.Config
	Postgres pg.Config
	Redis    redis.Config
	Email    email.Config
	Gateways channels.GatewayConfig
	Realtime realtime.Config

	TemplatesPath   string        `env:"NOTIFY_TEMPLATES_PATH"`                          // TemplatesPath is a YAML file of email templates.
	InboxTTL        time.Duration `env:"NOTIFY_INBOX_TTL" envDefault:"720h"`             // InboxTTL expires in-app items. Zero keeps them.
	InboxLiveBuffer int           `env:"NOTIFY_INBOX_LIVE_BUFFER" envDefault:"16"`       // InboxLiveBuffer is the per-subscriber buffer of live inbox feeds.
	DedupEnabled    bool          `env:"NOTIFY_DEDUP_ENABLED" envDefault:"false"`        // DedupEnabled turns on event key deduplication.
	DedupPrefix     string        `env:"NOTIFY_DEDUP_PREFIX" envDefault:"notify:dedup:"` // DedupPrefix namespaces dedup keys in Redis.
}
