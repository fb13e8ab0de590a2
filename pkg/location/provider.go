// Package location supplies streams of location fixes to the tracker.
package location

import (
	"context"

	"github.com/defeedco/wanderlens/pkg/geo"
)

// Provider is the upstream source of location fixes.
type Provider interface {
	// Stream sends fixes in arrival order until ctx is done or the source is exhausted.
	// Fixes is the channel to send fixes to.
	// Errs is the channel to report non-fatal errors to.
	// The caller closes both channels once Stream returns.
	Stream(ctx context.Context, fixes chan<- geo.Fix, errs chan<- error)
}

// LastKnower is implemented by providers that remember a fix from before
// tracking started. The tracker delivers it as the first fix of a session.
type LastKnower interface {
	LastKnown(ctx context.Context) (geo.Fix, bool)
}

const (
	SourcePush   = "push"
	SourceReplay = "replay"
)
