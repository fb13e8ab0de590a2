package tracking

import "time"

type Config struct {
	ThresholdMeters float64 `env:"TRACKING_THRESHOLD_METERS,default=100" validate:"gt=0"`
	// FetchTimeout bounds a single search so a stuck request can not hold the in-flight gate.
	// Zero disables the bound.
	FetchTimeout    time.Duration `env:"TRACKING_FETCH_TIMEOUT,default=20s" validate:"gte=0"`
	NotifyNoResults bool          `env:"TRACKING_NOTIFY_NO_RESULTS,default=true"`
	// MonitorPeriod is how often fetch stats are logged. Zero disables the report.
	MonitorPeriod time.Duration `env:"TRACKING_MONITOR_PERIOD,default=1m" validate:"gte=0"`
}
