package location

import "time"

type Config struct {
	Source    string `env:"LOCATION_SOURCE,default=push" validate:"oneof=push replay"`
	TrackFile string `env:"LOCATION_TRACK_FILE,default=" validate:"required_if=Source replay"`
	// ReplayInterval defaults to the 15s update interval requested from device providers.
	ReplayInterval time.Duration `env:"LOCATION_REPLAY_INTERVAL,default=15s" validate:"gte=0"`
	PushBuffer     int           `env:"LOCATION_PUSH_BUFFER,default=64" validate:"gte=1"`
}
