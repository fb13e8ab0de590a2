package flickr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defeedco/wanderlens/pkg/lib"
	"github.com/defeedco/wanderlens/pkg/photos"
)

const okResponse = `{
  "photos": {
    "page": 1, "pages": 12, "perpage": 20, "total": "231",
    "photo": [
      {"id": "1", "owner": "x@N00", "secret": "a", "server": "100", "farm": 66, "title": "Spree"},
      {"id": "2", "owner": "y@N00", "secret": "b", "server": "100", "farm": 66, "title": "Museum Island"}
    ]
  },
  "stat": "ok"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	return NewClient(&Config{
		APIKey:    "test-key",
		BaseURL:   server.URL + "/services/rest/",
		ImageHost: "img.test",
		PerPage:   20,
	}, server.Client(), &logger)
}

func TestClient_Search_OK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/services/rest/", r.URL.Path)
		assert.Equal(t, "flickr.photos.search", q.Get("method"))
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "52.52", q.Get("lat"))
		assert.Equal(t, "13.405", q.Get("lon"))
		assert.Equal(t, "20", q.Get("per_page"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("nojsoncallback"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okResponse))
	})

	res := client.Search(context.Background(), 52.52, 13.405)

	require.NoError(t, res.Err)
	assert.True(t, res.HasPhotos())
	assert.Equal(t, photos.StatusOK, res.Status)
	assert.Equal(t, 231, res.Total)
	assert.Equal(t, []photos.PhotoRef{
		{ID: "1", Secret: "a", Server: "100", Title: "Spree"},
		{ID: "2", Secret: "b", Server: "100", Title: "Museum Island"},
	}, res.Photos)
	assert.Equal(t, "https://img.test/100/1_a_z.jpg", client.ImageURL(res.Photos[0]))
}

func TestClient_Search_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus photos.Status
	}{
		{
			name:       "fail stat",
			status:     http.StatusOK,
			body:       `{"stat":"fail","code":100,"message":"Invalid API Key (Key has invalid format)"}`,
			wantErr:    photos.ErrSearchFailed,
			wantStatus: photos.StatusFail,
		},
		{
			name:       "non-2xx",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantErr:    photos.ErrTransport,
			wantStatus: photos.StatusFail,
		},
		{
			name:       "malformed body",
			status:     http.StatusOK,
			body:       `{"stat":"ok","photos":{"photo":[`,
			wantErr:    photos.ErrMalformedResponse,
			wantStatus: photos.StatusFail,
		},
		{
			name:       "missing photos object",
			status:     http.StatusOK,
			body:       `{"stat":"ok"}`,
			wantErr:    photos.ErrMalformedResponse,
			wantStatus: photos.StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			res := client.Search(context.Background(), 1, 2)

			assert.True(t, errors.Is(res.Err, tt.wantErr), "got %v", res.Err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.False(t, res.HasPhotos())
			assert.Empty(t, res.Photos)
		})
	}
}

func TestClient_Search_EmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"photos":{"page":1,"pages":0,"perpage":20,"total":0,"photo":[]},"stat":"ok"}`))
	})

	res := client.Search(context.Background(), 0, 0)

	assert.NoError(t, res.Err)
	assert.False(t, res.HasPhotos())
	assert.ErrorIs(t, res.Failure(), photos.ErrEmptyResult)
}

func TestClient_Search_Cancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := client.Search(ctx, 0, 0)

	assert.ErrorIs(t, res.Err, photos.ErrTransport)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestClient_Search_RetriesThrottled(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	logger := zerolog.Nop()
	transport := lib.NewRetryClient(server.Client(), &logger, 3).WithBackoff(time.Millisecond, 10*time.Millisecond)
	client := NewClient(&Config{APIKey: "k", BaseURL: server.URL}, transport, &logger)

	res := client.Search(context.Background(), 1, 1)

	assert.True(t, res.HasPhotos())
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFlexInt(t *testing.T) {
	var page photosPage
	require.NoError(t, json.Unmarshal([]byte(`{"page":"3","pages":7,"total":null}`), &page))
	assert.Equal(t, flexInt(3), page.Page)
	assert.Equal(t, flexInt(7), page.Pages)
	assert.Equal(t, flexInt(0), page.Total)
}
