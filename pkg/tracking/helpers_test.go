package tracking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/defeedco/wanderlens/pkg/geo"
	"github.com/defeedco/wanderlens/pkg/notify"
	"github.com/defeedco/wanderlens/pkg/photos"
)

// scriptedSearcher blocks every search until a result is sent on results.
type scriptedSearcher struct {
	calls     atomic.Int32
	results   chan photos.SearchResult
	ignoreCtx bool

	mu      sync.Mutex
	queries []geo.Fix
	ctxErrs []error
}

func newScriptedSearcher() *scriptedSearcher {
	return &scriptedSearcher{results: make(chan photos.SearchResult, 16)}
}

func (s *scriptedSearcher) Search(ctx context.Context, lat, lon float64) photos.SearchResult {
	s.calls.Add(1)
	s.mu.Lock()
	s.queries = append(s.queries, geo.Fix{Latitude: lat, Longitude: lon})
	s.mu.Unlock()

	if s.ignoreCtx {
		res := <-s.results
		s.mu.Lock()
		s.ctxErrs = append(s.ctxErrs, ctx.Err())
		s.mu.Unlock()
		return res
	}

	select {
	case res := <-s.results:
		return res
	case <-ctx.Done():
		return photos.Failed(fmt.Errorf("%w: %w", photos.ErrTransport, ctx.Err()))
	}
}

func (s *scriptedSearcher) Queries() []geo.Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geo.Fix(nil), s.queries...)
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	ch     chan notify.Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan notify.Event, 64)}
}

func (r *recorder) Publish(e notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.ch <- e
}

func (r *recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func (r *recorder) wait(t *testing.T) notify.Event {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return notify.Event{}
	}
}

type fixedRand int

func (f fixedRand) IntN(n int) int {
	return int(f) % n
}

func okResult(refs ...photos.PhotoRef) photos.SearchResult {
	return photos.SearchResult{Status: photos.StatusOK, Photos: refs, Total: len(refs)}
}

func ref(id, secret, server string) photos.PhotoRef {
	return photos.PhotoRef{ID: id, Secret: secret, Server: server}
}

func testConfig() *Config {
	return &Config{
		ThresholdMeters: geo.DefaultThresholdMeters,
		FetchTimeout:    5 * time.Second,
		NotifyNoResults: true,
	}
}

func newTestCoordinator(t *testing.T, s photos.Searcher, p publisher, opts ...Option) *Coordinator {
	t.Helper()
	logger := zerolog.Nop()
	c := NewCoordinator(&logger, s, p, testConfig(), opts...)
	t.Cleanup(c.Close)
	return c
}
