package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	httpswagger "github.com/swaggo/http-swagger"

	"github.com/defeedco/wanderlens/pkg/api/auth"
	"github.com/defeedco/wanderlens/pkg/geo"
	"github.com/defeedco/wanderlens/pkg/lib"
	"github.com/defeedco/wanderlens/pkg/location"
	"github.com/defeedco/wanderlens/pkg/notify"
	"github.com/defeedco/wanderlens/pkg/tracking"
)

//go:embed openapi.yaml
var openapiSpecYaml string

const maxRequestBody = 1 << 16

type Server struct {
	tracker *tracking.Tracker
	events  eventSource
	pusher  LocationPusher
	stats   statsSource
	config  *Config
	logger  *zerolog.Logger
	http    http.Server
	// closing is closed once Shutdown begins, ending long-lived streams.
	closing   chan struct{}
	closeOnce sync.Once
}

type eventSource interface {
	SubscribeChan(buffer int) (notify.Handle, <-chan notify.Event)
	Unsubscribe(h notify.Handle)
}

// LocationPusher accepts fixes posted to the API.
// Pass nil when fixes come from another provider.
type LocationPusher interface {
	Push(fix geo.Fix) error
}

type statsSource interface {
	Stats() tracking.Stats
}

var _ ServerInterface = (*Server)(nil)

func NewServer(
	logger *zerolog.Logger,
	config *Config,
	authMiddleware *auth.RouteAuthMiddleware,
	tracker *tracking.Tracker,
	events eventSource,
	pusher LocationPusher,
	stats statsSource,
	mcpHandler http.Handler,
) (*Server, error) {
	mux := http.NewServeMux()

	server := &Server{
		tracker: tracker,
		events:  events,
		pusher:  pusher,
		stats:   stats,
		config:  config,
		logger:  logger,
		http: http.Server{
			Addr:    config.Addr(),
			Handler: authMiddleware.Middleware(corsMiddleware(mux, config.CORSOrigin)),
		},
		closing: make(chan struct{}),
	}
	server.http.RegisterOnShutdown(func() {
		server.closeOnce.Do(func() { close(server.closing) })
	})

	HandlerFromMux(server, mux)
	server.registerApiDocsHandlers(mux)
	if mcpHandler != nil {
		mux.Handle("/mcp", mcpHandler)
	}

	return server, nil
}

func corsMiddleware(next http.Handler, originConfig string) http.Handler {
	origins := strings.Split(originConfig, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestOrigin := r.Header.Get("Origin")

		if len(origins) == 1 && origins[0] == "*" {
			// Allow all origins
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if requestOrigin != "" && slices.Contains(origins, requestOrigin) {
			// CORS doesn't support multiple origins,
			// so we either set the origin in the header or not at all.
			w.Header().Set("Access-Control-Allow-Origin", requestOrigin)
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerApiDocsHandlers(mux *http.ServeMux) {
	mux.Handle("/docs/", httpswagger.Handler(
		httpswagger.URL("/docs/openapi.yaml"),
	))
	mux.HandleFunc("/docs/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")

		_, err := w.Write([]byte(openapiSpecYaml))
		if err != nil {
			s.logger.Error().Err(err).Msg("response write error")
		}
	})
}

// Handler returns the root handler, including auth and CORS.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("Starting API server")

	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, ends open event streams and waits for
// in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) StartTracking(w http.ResponseWriter, r *http.Request) {
	// The session outlives the request.
	_, err := s.tracker.Start(context.WithoutCancel(r.Context()))
	if errors.Is(err, tracking.ErrAlreadyTracking) {
		s.conflict(w, err, "start tracking")
		return
	}
	if err != nil {
		s.internalError(w, err, "start tracking")
		return
	}

	session, ok := s.tracker.Session()
	if !ok {
		s.internalError(w, errors.New("session stopped while starting"), "start tracking")
		return
	}

	s.serializeRes(w, r, serializeSession(session))
}

func (s *Server) StopTracking(w http.ResponseWriter, r *http.Request) {
	s.serializeRes(w, r, StopTrackingResponse{
		Stopped: s.tracker.Stop(),
	})
}

func (s *Server) GetTracking(w http.ResponseWriter, r *http.Request) {
	out := TrackingState{
		Status: serializeStatus(s.tracker.Status()),
	}

	if session, ok := s.tracker.Session(); ok {
		out.Running = true
		serialized := serializeSession(session)
		out.Session = &serialized
	}

	s.serializeRes(w, r, out)
}

func (s *Server) ListImages(w http.ResponseWriter, r *http.Request, params ListImagesParams) {
	limit := s.config.DefaultLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 {
		s.badRequest(w, fmt.Errorf("limit must be positive, got %d", limit), "list images")
		return
	}

	urls := s.tracker.Snapshot()
	total := len(urls)
	if len(urls) > limit {
		urls = urls[:limit]
	}

	s.serializeRes(w, r, ImagesResponse{
		Urls:  urls,
		Total: total,
	})
}

func (s *Server) PushLocation(w http.ResponseWriter, r *http.Request) {
	if s.pusher == nil {
		s.conflict(w, errors.New("locations are not accepted over the API"), "push location")
		return
	}

	var req PushLocationJSONRequestBody
	if err := deserializeReq(r, &req); err != nil {
		s.badRequest(w, err, "deserialize request")
		return
	}

	fix := deserializeFix(req)
	if err := lib.ValidateStruct(&fix); err != nil {
		s.badRequest(w, err, "validate location")
		return
	}

	err := s.pusher.Push(fix)
	if errors.Is(err, location.ErrBufferFull) {
		s.logger.Warn().Err(err).Msg("push location")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.internalError(w, err, "push location")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.Stats()

	out := FetchStats{
		FixesSeen:      stats.FixesSeen,
		FixesIgnored:   stats.FixesIgnored,
		FetchSucceeded: stats.FetchSucceeded,
		FetchFailed:    stats.FetchFailed,
		FetchDiscarded: stats.FetchDiscarded,
		AvgFetchMillis: stats.AvgFetchMillis,
	}
	if !stats.LastFetchAt.IsZero() {
		out.LastFetchAt = &stats.LastFetchAt
	}

	s.serializeRes(w, r, out)
}

func deserializeReq[Req any](r *http.Request, req *Req) error {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return fmt.Errorf("unsupported content type: %s", contentType)
	}

	reqBytes, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	err = json.Unmarshal(reqBytes, req)
	if err != nil {
		return fmt.Errorf("deserialize request body: %w", err)
	}

	return nil
}

// serializeRes writes res as JSON, compressed when the client accepts it.
func (s *Server) serializeRes(w http.ResponseWriter, r *http.Request, res any) {
	w.Header().Set("Content-Type", "application/json")

	body := brotli.HTTPCompressor(w, r)
	defer body.Close()

	if err := json.NewEncoder(body).Encode(res); err != nil {
		s.logger.Err(err).Msg("serialize response")
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.logger.Err(err).Msg(msg)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) badRequest(w http.ResponseWriter, err error, msg string) {
	s.logger.Debug().Err(err).Msg(msg)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) conflict(w http.ResponseWriter, err error, msg string) {
	s.logger.Debug().Err(err).Msg(msg)
	http.Error(w, err.Error(), http.StatusConflict)
}

func serializeSession(in tracking.Session) TrackingSession {
	return TrackingSession{
		Id:        in.ID,
		StartedAt: in.StartedAt,
		Streaming: in.Streaming,
	}
}

func serializeStatus(in tracking.Status) TrackingStatus {
	out := TrackingStatus{
		InFlight:    in.InFlight,
		ResultCount: in.ResultCount,
	}
	if in.LastQueried != nil {
		fix := serializeFix(*in.LastQueried)
		out.LastQueried = &fix
	}
	return out
}

func serializeFix(in geo.Fix) LocationFix {
	out := LocationFix{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if !in.Time.IsZero() {
		out.Time = &in.Time
	}
	return out
}

func deserializeFix(in LocationFix) geo.Fix {
	fix := geo.NewFix(in.Latitude, in.Longitude)
	if in.Time != nil {
		fix.Time = *in.Time
	}
	return fix
}
