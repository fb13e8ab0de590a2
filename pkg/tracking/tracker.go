package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/defeedco/wanderlens/pkg/geo"
	"github.com/defeedco/wanderlens/pkg/location"
)

var ErrAlreadyTracking = errors.New("tracking already started")

// Tracker runs tracking sessions: it reads fixes from the provider and
// hands them to the coordinator one at a time.
type Tracker struct {
	// lifecycle serializes Start and Stop so a new session never overlaps
	// the teardown of the previous one.
	lifecycle   sync.Mutex
	mu          sync.Mutex
	provider    location.Provider
	coordinator *Coordinator
	logger      *zerolog.Logger
	session     *session
}

type session struct {
	id        uuid.UUID
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	streaming bool
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	// Streaming is false once the provider ran out of fixes.
	Streaming bool   `json:"streaming"`
	Status    Status `json:"status"`
}

func NewTracker(logger *zerolog.Logger, provider location.Provider, coordinator *Coordinator) *Tracker {
	return &Tracker{
		provider:    provider,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Start begins a session that lives until Stop is called or ctx is done.
func (t *Tracker) Start(ctx context.Context) (uuid.UUID, error) {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		return uuid.Nil, ErrAlreadyTracking
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		id:        uuid.New(),
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		streaming: true,
	}
	t.session = s

	t.logger.Info().
		Str("session_id", s.id.String()).
		Msg("Tracking started")

	go t.run(ctx, s)

	return s.id, nil
}

// Stop ends the current session and resets the results.
// It reports whether a session was running.
func (t *Tracker) Stop() bool {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	s := t.session
	t.mu.Unlock()

	if s == nil {
		return false
	}

	s.cancel()
	<-s.done
	t.coordinator.Stop()

	t.mu.Lock()
	t.session = nil
	t.mu.Unlock()

	t.logger.Info().
		Str("session_id", s.id.String()).
		Dur("duration", time.Since(s.startedAt)).
		Msg("Tracking stopped")

	return true
}

// Session returns the running session, if any.
func (t *Tracker) Session() (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return Session{}, false
	}

	return Session{
		ID:        t.session.id,
		StartedAt: t.session.startedAt,
		Streaming: t.session.streaming,
		Status:    t.coordinator.Status(),
	}, true
}

// Snapshot returns the current results most recent first.
func (t *Tracker) Snapshot() []string {
	return t.coordinator.CurrentResults()
}

func (t *Tracker) Status() Status {
	return t.coordinator.Status()
}

func (t *Tracker) run(ctx context.Context, s *session) {
	defer close(s.done)
	defer t.streamEnded(s)

	logger := t.logger.With().Str("session_id", s.id.String()).Logger()

	if lk, ok := t.provider.(location.LastKnower); ok {
		if fix, ok := lk.LastKnown(ctx); ok {
			logger.Debug().Stringer("fix", fix).Msg("Using last known location")
			t.coordinator.OnLocationFix(fix)
		}
	}

	fixChan := make(chan geo.Fix, 16)
	errorChan := make(chan error, 16)

	go func() {
		defer close(fixChan)
		defer close(errorChan)
		t.provider.Stream(ctx, fixChan, errorChan)
	}()

	for {
		select {
		case fix, ok := <-fixChan:
			if !ok {
				fixChan = nil
			} else {
				t.coordinator.OnLocationFix(fix)
			}
		case err, ok := <-errorChan:
			if !ok {
				errorChan = nil
			} else {
				logger.Error().
					Err(err).
					Msg("Location provider error")
			}
		case <-ctx.Done():
			return
		}

		// Exit when both channels are closed
		if fixChan == nil && errorChan == nil {
			logger.Info().Msg("Location stream ended")
			return
		}
	}
}

func (t *Tracker) streamEnded(s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s.streaming = false
}
