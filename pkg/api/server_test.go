package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defeedco/wanderlens/pkg/api/auth"
	"github.com/defeedco/wanderlens/pkg/location"
	"github.com/defeedco/wanderlens/pkg/notify"
	"github.com/defeedco/wanderlens/pkg/photos"
	"github.com/defeedco/wanderlens/pkg/tracking"
)

type testEnv struct {
	server   *Server
	tracker  *tracking.Tracker
	notifier *notify.Notifier
	searches *atomic.Int32
}

func newTestEnv(t *testing.T, push bool) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	searches := &atomic.Int32{}
	searcher := photos.SearcherFunc(func(_ context.Context, _, _ float64) photos.SearchResult {
		n := searches.Add(1)
		id := string(rune('0' + n))
		return photos.SearchResult{
			Status: photos.StatusOK,
			Photos: []photos.PhotoRef{{ID: id, Secret: "s", Server: "1"}},
		}
	})

	notifier := notify.NewNotifier(&logger)
	monitor := tracking.NewMonitor(&logger, 0)
	coordinator := tracking.NewCoordinator(&logger, searcher, notifier, &tracking.Config{
		ThresholdMeters: 100,
		FetchTimeout:    time.Second,
	}, tracking.WithMonitor(monitor))

	var provider location.Provider
	var pusher LocationPusher
	if push {
		p := location.NewPush(8)
		provider, pusher = p, p
	} else {
		provider = location.NewReplay(&location.Track{}, 0, &logger)
	}
	tracker := tracking.NewTracker(&logger, provider, coordinator)

	cfg := &Config{
		Host:         "localhost",
		Port:         8080,
		CORSOrigin:   "*",
		EventBuffer:  8,
		KeepAlive:    time.Minute,
		DefaultLimit: 20,
	}
	server, err := NewServer(&logger, cfg, auth.NewRouteAuthMiddleware(nil), tracker, notifier, pusher, monitor, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		tracker.Stop()
		coordinator.Close()
		notifier.Close()
	})

	return &testEnv{server: server, tracker: tracker, notifier: notifier, searches: searches}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_TrackingLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	state := decode[TrackingState](t, env.do(t, http.MethodGet, "/tracking", ""))
	assert.False(t, state.Running)
	assert.Nil(t, state.Session)

	rec := env.do(t, http.MethodPost, "/tracking/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode[TrackingSession](t, rec)
	assert.True(t, session.Streaming)

	rec = env.do(t, http.MethodPost, "/tracking/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodPost, "/locations", `{"latitude":52.52,"longitude":13.405}`)
		if rec.Code != http.StatusAccepted {
			return false
		}
		images := decode[ImagesResponse](t, env.do(t, http.MethodGet, "/images", ""))
		return images.Total == 1
	}, 2*time.Second, 10*time.Millisecond)

	state = decode[TrackingState](t, env.do(t, http.MethodGet, "/tracking", ""))
	assert.True(t, state.Running)
	require.NotNil(t, state.Session)
	assert.Equal(t, session.Id, state.Session.Id)
	assert.Equal(t, 1, state.Status.ResultCount)
	require.NotNil(t, state.Status.LastQueried)
	assert.Equal(t, 52.52, state.Status.LastQueried.Latitude)

	stop := decode[StopTrackingResponse](t, env.do(t, http.MethodPost, "/tracking/stop", ""))
	assert.True(t, stop.Stopped)
	stop = decode[StopTrackingResponse](t, env.do(t, http.MethodPost, "/tracking/stop", ""))
	assert.False(t, stop.Stopped)

	images := decode[ImagesResponse](t, env.do(t, http.MethodGet, "/images", ""))
	assert.Equal(t, 0, images.Total)
	assert.Empty(t, images.Urls)
}

func TestServer_ListImagesLimit(t *testing.T) {
	env := newTestEnv(t, true)
	_, err := env.tracker.Start(context.Background())
	require.NoError(t, err)

	// Three fixes ~1.1 km apart.
	for i, lat := range []string{"52.50", "52.51", "52.52"} {
		require.Eventually(t, func() bool {
			env.do(t, http.MethodPost, "/locations", `{"latitude":`+lat+`,"longitude":13.4}`)
			return env.tracker.Status().ResultCount == i+1
		}, 2*time.Second, 10*time.Millisecond)
	}

	images := decode[ImagesResponse](t, env.do(t, http.MethodGet, "/images?limit=2", ""))
	assert.Equal(t, 3, images.Total)
	assert.Equal(t, []string{
		"https://live.staticflickr.com/1/3_s_z.jpg",
		"https://live.staticflickr.com/1/2_s_z.jpg",
	}, images.Urls)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/images?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/images?limit=0", "").Code)
}

func TestServer_PushLocationErrors(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
	}{
		{name: "latitude out of range", body: `{"latitude":91,"longitude":0}`, contentType: "application/json", wantCode: http.StatusBadRequest},
		{name: "broken json", body: `{"latitude":`, contentType: "application/json", wantCode: http.StatusBadRequest},
		{name: "wrong content type", body: `{"latitude":1,"longitude":1}`, contentType: "text/plain", wantCode: http.StatusBadRequest},
		{name: "ok without session", body: `{"latitude":1,"longitude":1}`, contentType: "application/json; charset=utf-8", wantCode: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestServer_PushLocationWithoutPusher(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/locations", `{"latitude":1,"longitude":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_BrotliResponse(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	var stats FetchStats
	require.NoError(t, json.NewDecoder(brotli.NewReader(rec.Body)).Decode(&stats))
	assert.Equal(t, 0, stats.FetchSucceeded)
	assert.Nil(t, stats.LastFetchAt)
}

func TestServer_CORSAndDocs(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodOptions, "/tracking/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodGet, "/docs/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tracking/start")
}

func TestServer_StreamEvents(t *testing.T) {
	env := newTestEnv(t, true)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	reader := bufio.NewReader(res.Body)

	name, e := readEvent(t, reader)
	assert.Equal(t, eventSnapshot, name)
	assert.Empty(t, e.URLs)

	_, err = env.tracker.Start(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		env.do(t, http.MethodPost, "/locations", `{"latitude":10,"longitude":10}`)
		return env.searches.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)

	name, e = readEvent(t, reader)
	assert.Equal(t, string(notify.EventResults), name)
	assert.Equal(t, []string{"https://live.staticflickr.com/1/1_s_z.jpg"}, e.URLs)
}

func TestServer_ShutdownEndsEventStreams(t *testing.T) {
	env := newTestEnv(t, true)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- env.server.Serve(l) }()

	res, err := http.Get("http://" + l.Addr().String() + "/events")
	require.NoError(t, err)
	defer res.Body.Close()

	name, _ := readEvent(t, bufio.NewReader(res.Body))
	require.Equal(t, eventSnapshot, name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, env.server.Shutdown(ctx))
	assert.Less(t, time.Since(start), 3*time.Second)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop serving")
	}

	// A second shutdown must not panic on the closed stream signal.
	assert.NoError(t, env.server.Shutdown(context.Background()))
}

func TestDeserializeFix(t *testing.T) {
	before := time.Now()
	fix := deserializeFix(LocationFix{Latitude: 1, Longitude: 2})
	assert.Equal(t, 1.0, fix.Latitude)
	assert.Equal(t, 2.0, fix.Longitude)
	assert.False(t, fix.Time.Before(before))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fix = deserializeFix(LocationFix{Latitude: 1, Longitude: 2, Time: &at})
	assert.Equal(t, at, fix.Time)
}

func readEvent(t *testing.T, r *bufio.Reader) (string, notify.Event) {
	t.Helper()
	var (
		name string
		e    notify.Event
	)
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		case line == "" && name != "":
			return name, e
		}
	}
}
