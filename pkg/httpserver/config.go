package httpserver

import "time"

type Config struct {
	Addr            string        `env:"NOTIFY_HTTP_ADDR" envDefault:":8081"`          // Addr is the address the probe server listens on.
	ReadTimeout     time.Duration `env:"NOTIFY_HTTP_READ_TIMEOUT" envDefault:"5s"`     // ReadTimeout bounds reading a request.
	WriteTimeout    time.Duration `env:"NOTIFY_HTTP_WRITE_TIMEOUT" envDefault:"10s"`   // WriteTimeout bounds writing a response.
	ShutdownTimeout time.Duration `env:"NOTIFY_HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"` // ShutdownTimeout is the time allowed for graceful shutdown.
}
