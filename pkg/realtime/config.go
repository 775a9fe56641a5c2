package realtime

// Backend names a realtime transport.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendKafka  Backend = "kafka"
	BackendNone   Backend = "none"
)

// Config selects and configures the realtime publisher.
type Config struct {
	Backend      Backend  `env:"NOTIFY_REALTIME_BACKEND" envDefault:"memory"`
	Buffer       int      `env:"NOTIFY_REALTIME_BUFFER" envDefault:"64"`
	RedisPrefix  string   `env:"NOTIFY_REALTIME_REDIS_PREFIX" envDefault:"notify:live:"`
	KafkaBrokers []string `env:"NOTIFY_REALTIME_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"NOTIFY_REALTIME_KAFKA_TOPIC" envDefault:"notifications.live"`
}
