// Package notify broadcasts result list updates to any number of listeners.
package notify

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventResults carries the full, most-recent-first image URL list.
	EventResults EventType = "results"
	// EventNoResults signals that a search around the current location came back empty or failed.
	EventNoResults EventType = "no_results"
)

type Event struct {
	Type    EventType `json:"type"`
	URLs    []string  `json:"urls"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Listener receives events on the subscription's own worker.
type Listener func(Event)

// Handle identifies a subscription.
type Handle uuid.UUID

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// Notifier fans events out to subscribers. Each subscriber is served by a
// single-worker pool, so delivery is asynchronous to Publish and ordered
// per subscriber.
type Notifier struct {
	mu     sync.Mutex
	subs   map[Handle]*subscription
	closed bool
	logger *zerolog.Logger
}

type subscription struct {
	listener Listener
	pool     pond.Pool
	active   atomic.Bool
	done     chan struct{}
	onStop   func()
}

func NewNotifier(logger *zerolog.Logger) *Notifier {
	return &Notifier{
		subs:   make(map[Handle]*subscription),
		logger: logger,
	}
}

// Subscribe registers a listener for future events only.
// Late subscribers resync through the coordinator snapshot.
func (n *Notifier) Subscribe(listener Listener) Handle {
	return n.subscribe(listener, nil, nil)
}

// SubscribeChan delivers events on the returned channel.
// The channel is closed once the subscription is removed.
func (n *Notifier) SubscribeChan(buffer int) (Handle, <-chan Event) {
	ch := make(chan Event, buffer)
	done := make(chan struct{})

	h := n.subscribe(func(e Event) {
		select {
		case ch <- e:
		case <-done:
		}
	}, done, func() { close(ch) })

	return h, ch
}

func (n *Notifier) subscribe(listener Listener, done chan struct{}, onStop func()) Handle {
	if done == nil {
		done = make(chan struct{})
	}

	sub := &subscription{
		listener: listener,
		pool:     pond.NewPool(1),
		done:     done,
		onStop:   onStop,
	}
	sub.active.Store(true)

	h := Handle(uuid.New())

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		sub.stop()
		return h
	}

	n.subs[h] = sub
	n.logger.Debug().
		Str("handle", h.String()).
		Int("subscribers", len(n.subs)).
		Msg("Listener subscribed")

	return h
}

// Unsubscribe removes the subscription. Unknown handles are ignored.
func (n *Notifier) Unsubscribe(h Handle) {
	n.mu.Lock()
	sub, ok := n.subs[h]
	if ok {
		delete(n.subs, h)
	}
	n.mu.Unlock()

	if !ok {
		return
	}

	sub.stop()
	n.logger.Debug().
		Str("handle", h.String()).
		Msg("Listener unsubscribed")
}

// Publish enqueues e for every current subscriber and returns immediately.
func (n *Notifier) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for h, sub := range n.subs {
		ev := e
		ev.URLs = slices.Clone(e.URLs)
		sub.pool.Submit(func() {
			if !sub.active.Load() {
				return
			}
			defer func() {
				if r := recover(); r != nil {
					n.logger.Error().
						Str("handle", h.String()).
						Interface("panic", r).
						Msg("Listener panicked")
				}
			}()
			sub.listener(ev)
		})
	}
}

func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.subs)
}

// Close removes every subscription and waits for in-progress deliveries.
func (n *Notifier) Close() {
	n.mu.Lock()
	subs := n.subs
	n.subs = make(map[Handle]*subscription)
	n.closed = true
	n.mu.Unlock()

	for _, sub := range subs {
		sub.active.Store(false)
		close(sub.done)
		sub.pool.StopAndWait()
		if sub.onStop != nil {
			sub.onStop()
		}
	}
}

// stop discards queued events without waiting for the running one.
func (s *subscription) stop() {
	s.active.Store(false)
	close(s.done)

	go func() {
		s.pool.StopAndWait()
		if s.onStop != nil {
			s.onStop()
		}
	}()
}
