package api

import (
	"fmt"
	"time"
)

type Config struct {
	Host       string `env:"SERVER_HOST,default=localhost"`
	Port       uint16 `env:"SERVER_PORT,default=8080" validate:"gt=0"`
	CORSOrigin string `env:"CORS_ORIGIN,default=*"`
	// EventBuffer is the per-client queue length of the event stream.
	EventBuffer int `env:"SERVER_EVENT_BUFFER,default=16" validate:"gte=1"`
	// KeepAlive is the comment ping interval of the event stream.
	KeepAlive       time.Duration `env:"SERVER_KEEP_ALIVE,default=30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	DefaultLimit    int           `env:"SERVER_DEFAULT_LIMIT,default=20" validate:"gte=1"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
