package lib

import (
	"math/rand/v2"
	"time"
)

// JitterTicker returns a ticker that ticks every d plus a random jitter
// of up to 10% of d.
//
// Use this for periodic housekeeping so that replicas started together
// do not all run it at the same moment.
func JitterTicker(d time.Duration) *time.Ticker {
	jitter := time.Duration(rand.Int64N(int64(d/10) + 1))

	return time.NewTicker(d + jitter)
}
