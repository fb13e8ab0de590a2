package geo

// DefaultThresholdMeters is how far the device must move before a new query.
const DefaultThresholdMeters = 100.0

// Gate decides whether a fix warrants a new photo query.
type Gate struct {
	ThresholdMeters float64
}

func NewGate(thresholdMeters float64) Gate {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}
	return Gate{ThresholdMeters: thresholdMeters}
}

// ShouldFetch reports whether current should trigger a query.
//
// The first fix of a session (no last query and no results) always does.
// Afterwards a fix triggers once it is at least ThresholdMeters away from
// the last queried location. Without a last location but with results
// there is nothing to measure against, so no query is made.
func (g Gate) ShouldFetch(last *Fix, current Fix, hasResults bool) bool {
	if last == nil {
		return !hasResults
	}

	return Distance(*last, current) >= g.ThresholdMeters
}
