package flickr

import "time"

type Config struct {
	APIKey    string        `env:"FLICKR_API_KEY,required" validate:"required"`
	BaseURL   string        `env:"FLICKR_BASE_URL,default=https://www.flickr.com/services/rest/" validate:"required,url"`
	ImageHost string        `env:"FLICKR_IMAGE_HOST,default=live.staticflickr.com" validate:"required,hostname_port|hostname"`
	PerPage   int           `env:"FLICKR_PER_PAGE,default=20" validate:"gte=1,lte=500"`
	Timeout   time.Duration `env:"FLICKR_TIMEOUT,default=15s" validate:"gte=0"`
	// MaxAttempts bounds how often a throttled (429/503) search is sent.
	MaxAttempts int `env:"FLICKR_MAX_ATTEMPTS,default=3" validate:"gte=1,lte=10"`
	// CacheTTL keeps successful searches around the same spot in memory. Zero disables caching.
	CacheTTL time.Duration `env:"FLICKR_CACHE_TTL,default=10m" validate:"gte=0"`
}
