package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"

	"github.com/defeedco/wanderlens/pkg/api"
	"github.com/defeedco/wanderlens/pkg/api/auth"
	"github.com/defeedco/wanderlens/pkg/lib"
	"github.com/defeedco/wanderlens/pkg/lib/log"
	"github.com/defeedco/wanderlens/pkg/location"
	"github.com/defeedco/wanderlens/pkg/photos/flickr"
	"github.com/defeedco/wanderlens/pkg/tracking"
)

type Config struct {
	API      api.Config      `env:""`
	Auth     auth.Config     `env:""`
	Log      log.Config      `env:""`
	Flickr   flickr.Config   `env:""`
	Tracking tracking.Config `env:""`
	Location location.Config `env:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := lib.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
