package tracking

import (
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/rs/zerolog"
)

const latencyWindow = 5

// Monitor keeps coordinator fetch stats.
type Monitor struct {
	sync.Mutex
	logger *zerolog.Logger
	period time.Duration

	fixesSeen    int
	fixesIgnored int
	succeeded    int
	failed       int
	discarded    int
	fetchDur     *movingaverage.MovingAverage
	lastFetch    time.Time

	// Counters since the last periodic report.
	periodFetches int
	periodFixes   int

	stopCh chan struct{}
}

type Stats struct {
	FixesSeen      int       `json:"fixesSeen"`
	FixesIgnored   int       `json:"fixesIgnored"`
	FetchSucceeded int       `json:"fetchSucceeded"`
	FetchFailed    int       `json:"fetchFailed"`
	FetchDiscarded int       `json:"fetchDiscarded"`
	AvgFetchMillis float64   `json:"avgFetchMillis"`
	LastFetchAt    time.Time `json:"lastFetchAt,omitzero"`
}

func NewMonitor(logger *zerolog.Logger, period time.Duration) *Monitor {
	return &Monitor{
		logger:   logger,
		period:   period,
		fetchDur: movingaverage.New(latencyWindow),
	}
}

// FixSeen counts a fix delivered to the coordinator.
func (m *Monitor) FixSeen() {
	m.Lock()
	defer m.Unlock()

	m.fixesSeen++
	m.periodFixes++
}

// FixIgnored counts a fix dropped because a fetch was in flight.
func (m *Monitor) FixIgnored() {
	m.Lock()
	defer m.Unlock()

	m.fixesIgnored++
}

func (m *Monitor) FetchSucceeded(dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.fetchDone(dur)
	m.succeeded++
}

func (m *Monitor) FetchFailed(dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.fetchDone(dur)
	m.failed++
}

// FetchDiscarded counts a completion that arrived after its session was stopped.
func (m *Monitor) FetchDiscarded() {
	m.Lock()
	defer m.Unlock()

	m.discarded++
}

// fetchDone must be called with the lock held.
func (m *Monitor) fetchDone(dur time.Duration) {
	m.fetchDur.Add(float64(dur/time.Microsecond) / 1000.0)
	m.lastFetch = time.Now()
	m.periodFetches++
}

func (m *Monitor) Stats() Stats {
	m.Lock()
	defer m.Unlock()

	return Stats{
		FixesSeen:      m.fixesSeen,
		FixesIgnored:   m.fixesIgnored,
		FetchSucceeded: m.succeeded,
		FetchFailed:    m.failed,
		FetchDiscarded: m.discarded,
		AvgFetchMillis: m.fetchDur.Avg(),
		LastFetchAt:    m.lastFetch,
	}
}

// Start starts the periodic report worker.
func (m *Monitor) Start() {
	m.Lock()
	defer m.Unlock()

	if m.stopCh != nil || m.period <= 0 {
		return
	}

	m.stopCh = make(chan struct{})
	go m.worker(m.stopCh)
}

// Stop stops the report worker.
func (m *Monitor) Stop() {
	m.Lock()
	defer m.Unlock()

	if m.stopCh == nil {
		return
	}

	close(m.stopCh)
	m.stopCh = nil
}

func (m *Monitor) worker(stopCh <-chan struct{}) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *Monitor) report() {
	m.Lock()
	defer m.Unlock()

	seconds := m.period.Seconds()
	m.logger.Info().
		Float64("fixes_per_sec", float64(m.periodFixes)/seconds).
		Float64("fetches_per_sec", float64(m.periodFetches)/seconds).
		Float64("avg_fetch_ms", m.fetchDur.Avg()).
		Int("fetch_failed", m.failed).
		Int("fetch_discarded", m.discarded).
		Msg("Tracking monitor")

	m.periodFixes = 0
	m.periodFetches = 0
}
