package notify

import (
	"time"
)

type Config struct {
	SendTimeout       time.Duration    `env:"NOTIFY_SEND_TIMEOUT" envDefault:"5s"`              // SendTimeout bounds a single channel send.
	PreferencePolicy  PreferencePolicy `env:"NOTIFY_PREFERENCE_POLICY" envDefault:"fail_open"`  // PreferencePolicy is fail_open or fail_closed.
	ParallelFlows     bool             `env:"NOTIFY_PARALLEL_FLOWS" envDefault:"false"`         // ParallelFlows runs the flows of one event concurrently.
	FanoutConcurrency int              `env:"NOTIFY_FANOUT_CONCURRENCY" envDefault:"8"`         // FanoutConcurrency bounds concurrent recipients in fan-out helpers.
	BusBuffer         int              `env:"NOTIFY_BUS_BUFFER" envDefault:"256"`               // BusBuffer is the number of pending realtime notices.
	DedupTTL          time.Duration    `env:"NOTIFY_DEDUP_TTL" envDefault:"24h"`                // DedupTTL is how long event keys are remembered.
	ScheduleQueue     string           `env:"NOTIFY_SCHEDULE_QUEUE" envDefault:"notifications"` // ScheduleQueue is the queue scheduled jobs go to.
	ScheduleRetries   int8             `env:"NOTIFY_SCHEDULE_RETRIES" envDefault:"3"`           // ScheduleRetries is the retry budget of a scheduled job.
	CatalogPath       string           `env:"NOTIFY_CATALOG_PATH"`                              // CatalogPath optionally points at a YAML flow catalog.
}

// DispatcherOptions translates the config into dispatcher options.
func (c Config) DispatcherOptions() []DispatcherOption {
	return []DispatcherOption{
		WithSendTimeout(c.SendTimeout),
		WithPreferencePolicy(c.PreferencePolicy),
	}
}

// SchedulerOptions translates the config into scheduler options.
func (c Config) SchedulerOptions() []SchedulerOption {
	return []SchedulerOption{
		WithScheduleQueue(c.ScheduleQueue),
		WithScheduleRetries(c.ScheduleRetries),
	}
}

// ControllerOptions translates the config into controller options.
func (c Config) ControllerOptions() []ControllerOption {
	return []ControllerOption{
		WithParallelFlows(c.ParallelFlows),
		WithFanoutConcurrency(c.FanoutConcurrency),
	}
}
