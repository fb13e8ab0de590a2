package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/defeedco/wanderlens/pkg/notify"
)

const eventSnapshot = "snapshot"

// StreamEvents sends notifier events as server-sent events. The stream opens
// with a snapshot of the current results, since subscribers get no history.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	handle, events := s.events.SubscribeChan(s.config.EventBuffer)
	defer s.events.Unsubscribe(handle)

	logger := s.logger.With().Str("subscriber", handle.String()).Logger()
	logger.Debug().Msg("Event stream opened")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	snapshot := notify.Event{
		Type: notify.EventResults,
		URLs: s.tracker.Snapshot(),
		At:   time.Now(),
	}
	if err := writeEvent(w, eventSnapshot, snapshot); err != nil {
		logger.Debug().Err(err).Msg("Write snapshot")
		return
	}
	if err := rc.Flush(); err != nil {
		logger.Error().Err(err).Msg("Event stream flush unsupported")
		return
	}

	keepAlive := time.NewTicker(s.config.KeepAlive)
	defer keepAlive.Stop()

	for {
		var err error

		select {
		case <-r.Context().Done():
			logger.Debug().Msg("Event stream closed")
			return
		case <-s.closing:
			logger.Debug().Msg("Event stream closed by shutdown")
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			err = writeEvent(w, string(e.Type), e)
		case <-keepAlive.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}

		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			logger.Debug().Err(err).Msg("Event stream write")
			return
		}
	}
}

func writeEvent(w io.Writer, name string, e notify.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
