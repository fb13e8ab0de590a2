package location

import (
	"context"
	"errors"
	"sync"

	"github.com/defeedco/wanderlens/pkg/geo"
)

var ErrBufferFull = errors.New("location buffer full")

// Push is a provider fed by callers, e.g. devices posting fixes to the API.
// Fixes pushed while nobody streams only update the last known location.
type Push struct {
	mu        sync.Mutex
	fixes     chan geo.Fix
	last      *geo.Fix
	reported  *geo.Fix // last fix handed out by LastKnown
	streaming bool
}

func NewPush(buffer int) *Push {
	if buffer < 1 {
		buffer = 1
	}
	return &Push{fixes: make(chan geo.Fix, buffer)}
}

// Push records fix and hands it to the active stream without blocking.
func (p *Push) Push(fix geo.Fix) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = &fix
	if !p.streaming {
		return nil
	}

	select {
	case p.fixes <- fix:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *Push) LastKnown(_ context.Context) (geo.Fix, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		return geo.Fix{}, false
	}
	p.reported = p.last
	return *p.last, true
}

func (p *Push) Stream(ctx context.Context, fixes chan<- geo.Fix, _ chan<- error) {
	p.setStreaming(true)
	defer p.setStreaming(false)

	for {
		select {
		case <-ctx.Done():
			return
		case fix := <-p.fixes:
			select {
			case fixes <- fix:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Push) setStreaming(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.streaming = v
	if v {
		// A fix that arrived after LastKnown but before streaming began
		// would otherwise be lost.
		if p.last != nil && p.last != p.reported {
			select {
			case p.fixes <- *p.last:
			default:
			}
		}
		return
	}

	// Drop whatever the previous session left behind.
	for {
		select {
		case <-p.fixes:
		default:
			return
		}
	}
}
