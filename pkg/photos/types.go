package photos

import (
	"context"
	"errors"
	"fmt"
)

// DefaultImageHost serves the "z" (640px) rendition of Flickr photos.
const DefaultImageHost = "live.staticflickr.com"

var (
	// ErrTransport covers network failures, timeouts and non-2xx responses.
	ErrTransport = errors.New("search transport error")
	// ErrMalformedResponse is returned when the response body can not be parsed.
	ErrMalformedResponse = errors.New("malformed search response")
	// ErrSearchFailed is returned when the upstream reports a failed status.
	ErrSearchFailed = errors.New("search failed")
	// ErrEmptyResult is a well-formed response without any photos.
	ErrEmptyResult = errors.New("no photos found")
)

type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
)

// PhotoRef identifies a remote photo by (Server, ID, Secret).
type PhotoRef struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
	Server string `json:"server"`
	Title  string `json:"title"`
}

// ImageURL derives the public image URL served by DefaultImageHost.
func (p PhotoRef) ImageURL() string {
	return ImageURL(DefaultImageHost, p)
}

// ImageURL derives the image URL of p on the given host.
// The URL depends on nothing but the host and the (Server, ID, Secret) triple.
func ImageURL(host string, p PhotoRef) string {
	return fmt.Sprintf("https://%s/%s/%s_%s_z.jpg", host, p.Server, p.ID, p.Secret)
}

// SearchResult is the tagged outcome of a single photo search.
// Err is set for any failed search; Status and Photos are filled from
// whatever the upstream returned.
type SearchResult struct {
	Status Status
	Photos []PhotoRef
	Total  int
	Err    error
}

// HasPhotos reports whether the search succeeded with at least one photo.
func (r SearchResult) HasPhotos() bool {
	return r.Err == nil && r.Status == StatusOK && len(r.Photos) > 0
}

// Failure returns why the result can not be used, or nil.
func (r SearchResult) Failure() error {
	switch {
	case r.Err != nil:
		return r.Err
	case r.Status != StatusOK:
		return fmt.Errorf("%w: status %q", ErrSearchFailed, r.Status)
	case len(r.Photos) == 0:
		return ErrEmptyResult
	}
	return nil
}

func Failed(err error) SearchResult {
	return SearchResult{Status: StatusFail, Err: err}
}

// Searcher looks up photos taken around a coordinate.
// Implementations never return errors out of band: failures are reported
// through SearchResult.Err.
type Searcher interface {
	Search(ctx context.Context, lat, lon float64) SearchResult
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, lat, lon float64) SearchResult

func (f SearcherFunc) Search(ctx context.Context, lat, lon float64) SearchResult {
	return f(ctx, lat, lon)
}
