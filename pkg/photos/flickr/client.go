// Package flickr searches Flickr for geotagged photos around a coordinate.
package flickr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/defeedco/wanderlens/pkg/lib"
	"github.com/defeedco/wanderlens/pkg/photos"
)

const (
	defaultBaseURL = "https://www.flickr.com/services/rest/"
	searchMethod   = "flickr.photos.search"
)

// Client calls the flickr.photos.search REST method.
// See: https://www.flickr.com/services/api/flickr.photos.search.html
type Client struct {
	httpClient lib.RequestDoer
	baseURL    string
	apiKey     string
	imageHost  string
	perPage    int
	logger     *zerolog.Logger
}

var _ photos.Searcher = (*Client)(nil)

func NewClient(cfg *Config, httpClient lib.RequestDoer, logger *zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	imageHost := cfg.ImageHost
	if imageHost == "" {
		imageHost = photos.DefaultImageHost
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		imageHost:  imageHost,
		perPage:    perPage,
		logger:     logger,
	}
}

// NewDefaultClient wires the retrying transport described by cfg.
func NewDefaultClient(cfg *Config, logger *zerolog.Logger) *Client {
	transport := lib.NewRetryClient(lib.NewHTTPClient(cfg.Timeout), logger, cfg.MaxAttempts)
	return NewClient(cfg, transport, logger)
}

type searchResponse struct {
	Stat    string      `json:"stat"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Photos  *photosPage `json:"photos"`
}

type photosPage struct {
	Page    flexInt `json:"page"`
	Pages   flexInt `json:"pages"`
	PerPage flexInt `json:"perpage"`
	Total   flexInt `json:"total"`
	Photo   []photo `json:"photo"`
}

type photo struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
	Server string `json:"server"`
	Title  string `json:"title"`
}

// flexInt accepts both 12 and "12"; the API has returned counters in either form.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("parse counter %s: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

// Search never fails out of band: every failure is tagged on the result.
func (c *Client) Search(ctx context.Context, lat, lon float64) photos.SearchResult {
	logger := c.logger.With().
		Float64("lat", lat).
		Float64("lon", lon).
		Logger()

	req, err := c.newSearchRequest(ctx, lat, lon)
	if err != nil {
		return photos.Failed(fmt.Errorf("%w: create request: %w", photos.ErrTransport, err))
	}

	start := time.Now()
	res, err := lib.DecodeJSONFromRequest[searchResponse](c.httpClient, req)
	if err != nil {
		kind := photos.ErrTransport
		if errors.Is(err, lib.ErrDecode) {
			kind = photos.ErrMalformedResponse
		}

		logger.Warn().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Photo search failed")

		return photos.Failed(fmt.Errorf("%w: %w", kind, err))
	}

	if !strings.EqualFold(res.Stat, string(photos.StatusOK)) {
		logger.Warn().
			Str("stat", res.Stat).
			Int("code", res.Code).
			Str("message", res.Message).
			Msg("Photo search returned failure status")

		return photos.SearchResult{
			Status: photos.StatusFail,
			Err:    fmt.Errorf("%w: code %d: %s", photos.ErrSearchFailed, res.Code, res.Message),
		}
	}

	if res.Photos == nil {
		return photos.Failed(fmt.Errorf("%w: missing photos object", photos.ErrMalformedResponse))
	}

	refs := make([]photos.PhotoRef, len(res.Photos.Photo))
	for i, p := range res.Photos.Photo {
		refs[i] = photos.PhotoRef{
			ID:     p.ID,
			Secret: p.Secret,
			Server: p.Server,
			Title:  p.Title,
		}
	}

	logger.Debug().
		Int("count", len(refs)).
		Int("total", int(res.Photos.Total)).
		Dur("duration", time.Since(start)).
		Msg("Photo search completed")

	return photos.SearchResult{
		Status: photos.StatusOK,
		Photos: refs,
		Total:  int(res.Photos.Total),
	}
}

// ImageURL derives the public URL of ref on the configured image host.
func (c *Client) ImageURL(ref photos.PhotoRef) string {
	return photos.ImageURL(c.imageHost, ref)
}

func (c *Client) newSearchRequest(ctx context.Context, lat, lon float64) (*http.Request, error) {
	params := url.Values{}
	params.Set("method", searchMethod)
	params.Set("api_key", c.apiKey)
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("format", "json")
	params.Set("nojsoncallback", "1")

	return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
}

