// Package tracking turns a stream of location fixes into a most-recent-first
// list of photo URLs, fetching at most one search at a time.
package tracking

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"

	"github.com/defeedco/wanderlens/pkg/geo"
	"github.com/defeedco/wanderlens/pkg/notify"
	"github.com/defeedco/wanderlens/pkg/photos"
)

const NoResultsMessage = "Unable to find images of your current location"

// RandSource picks the photo index from a search result.
type RandSource interface {
	// IntN returns a value in [0, n).
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

type publisher interface {
	Publish(e notify.Event)
}

type Option func(*Coordinator)

func WithRandSource(r RandSource) Option {
	return func(c *Coordinator) {
		c.rand = r
	}
}

// WithURLBuilder overrides how a photo reference becomes an image URL.
func WithURLBuilder(fn func(photos.PhotoRef) string) Option {
	return func(c *Coordinator) {
		c.imageURL = fn
	}
}

func WithMonitor(m *Monitor) Option {
	return func(c *Coordinator) {
		c.monitor = m
	}
}

// Coordinator decides when a fix warrants a new search and merges the
// results. All state is guarded by mu.
type Coordinator struct {
	mu          sync.Mutex
	logger      *zerolog.Logger
	searcher    photos.Searcher
	publisher   publisher
	gate        geo.Gate
	rand        RandSource
	imageURL    func(photos.PhotoRef) string
	monitor     *Monitor
	pool        pond.Pool
	timeout     time.Duration
	notifyEmpty bool

	// history holds results oldest first; snapshots reverse it.
	history     []string
	lastQueried *geo.Fix
	inFlight    bool
	cancelFetch context.CancelFunc
	// generation is bumped by Stop; completions from an older generation are discarded.
	generation uint64
	closed     bool
}

type Status struct {
	InFlight    bool     `json:"inFlight"`
	LastQueried *geo.Fix `json:"lastQueried,omitempty"`
	ResultCount int      `json:"resultCount"`
	Generation  uint64   `json:"generation"`
}

func NewCoordinator(
	logger *zerolog.Logger,
	searcher photos.Searcher,
	publisher publisher,
	config *Config,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		logger:      logger,
		searcher:    searcher,
		publisher:   publisher,
		gate:        geo.NewGate(config.ThresholdMeters),
		rand:        globalRand{},
		imageURL:    photos.PhotoRef.ImageURL,
		pool:        pond.NewPool(1),
		timeout:     config.FetchTimeout,
		notifyEmpty: config.NotifyNoResults,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.monitor == nil {
		c.monitor = NewMonitor(logger, 0)
	}
	return c
}

// OnLocationFix triggers a search for fix when no search is in flight and
// the gate allows it. It never waits for the search.
func (c *Coordinator) OnLocationFix(fix geo.Fix) {
	c.monitor.FixSeen()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.inFlight {
		c.monitor.FixIgnored()
		c.logger.Debug().
			Stringer("fix", fix).
			Msg("Search in flight, ignoring fix")
		return
	}

	if !c.gate.ShouldFetch(c.lastQueried, fix, len(c.history) > 0) {
		c.logger.Trace().
			Stringer("fix", fix).
			Msg("Fix too close to last query")
		return
	}

	c.trigger(fix)
}

// trigger must be called with the lock held.
func (c *Coordinator) trigger(fix geo.Fix) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	c.inFlight = true
	c.cancelFetch = cancel
	generation := c.generation

	c.logger.Debug().
		Stringer("fix", fix).
		Uint64("generation", generation).
		Msg("Searching photos")

	c.pool.Submit(func() {
		defer cancel()

		start := time.Now()
		res := c.searcher.Search(ctx, fix.Latitude, fix.Longitude)
		c.complete(generation, fix, res, time.Since(start))
	})
}

func (c *Coordinator) complete(generation uint64, fix geo.Fix, res photos.SearchResult, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.monitor.FetchDiscarded()
		c.logger.Debug().
			Uint64("generation", generation).
			Msg("Discarding search from stopped session")
		return
	}

	c.inFlight = false
	c.cancelFetch = nil

	if err := res.Failure(); err != nil {
		c.monitor.FetchFailed(took)
		c.logger.Warn().
			Err(err).
			Stringer("fix", fix).
			Msg("Photo search returned nothing usable")

		if c.notifyEmpty {
			c.publisher.Publish(notify.Event{
				Type:    notify.EventNoResults,
				Message: NoResultsMessage,
				At:      time.Now(),
			})
		}
		return
	}

	ref := res.Photos[c.rand.IntN(len(res.Photos))]
	url := c.imageURL(ref)
	c.history = append(c.history, url)
	c.lastQueried = &fix
	c.monitor.FetchSucceeded(took)

	c.logger.Info().
		Stringer("fix", fix).
		Str("url", url).
		Int("candidates", len(res.Photos)).
		Msg("Added photo")

	c.publisher.Publish(notify.Event{
		Type: notify.EventResults,
		URLs: c.snapshot(),
		At:   time.Now(),
	})
}

// Stop resets the session. A search still running is cancelled and its
// completion is discarded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.inFlight = false
	c.history = nil
	c.lastQueried = nil
}

// Close stops the coordinator and waits for the running search to return.
func (c *Coordinator) Close() {
	c.Stop()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.pool.StopAndWait()
}

// CurrentResults returns the results most recent first.
func (c *Coordinator) CurrentResults() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	var last *geo.Fix
	if c.lastQueried != nil {
		fix := *c.lastQueried
		last = &fix
	}

	return Status{
		InFlight:    c.inFlight,
		LastQueried: last,
		ResultCount: len(c.history),
		Generation:  c.generation,
	}
}

// snapshot must be called with the lock held.
func (c *Coordinator) snapshot() []string {
	out := slices.Clone(c.history)
	slices.Reverse(out)
	if out == nil {
		out = []string{}
	}
	return out
}
