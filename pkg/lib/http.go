package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultClientTimeout = 15 * time.Second

var BuildVersion = "dev"

var UserAgent = "wanderlens/" + BuildVersion + " +https://github.com/defeedco/wanderlens"

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("decode response")

// StatusError is returned for responses with an unexpected status code.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s, response: %s", e.StatusCode, e.URL, e.Body)
}

type RequestDoer interface {
	Do(*http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
		},
		Timeout: timeout,
	}
}

// DecodeJSONFromRequest executes the request and decodes a 200 response body into T.
// Non-200 responses yield a *StatusError; undecodable bodies wrap ErrDecode.
func DecodeJSONFromRequest[T any](client RequestDoer, request *http.Request) (T, error) {
	var result T

	if request.Header.Get("User-Agent") == "" {
		request.Header.Set("User-Agent", UserAgent)
	}

	response, err := client.Do(request)
	if err != nil {
		return result, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return result, fmt.Errorf("read body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		truncatedBody, _ := LimitStringLength(string(body), 256)

		return result, &StatusError{
			StatusCode: response.StatusCode,
			URL:        request.URL.Redacted(),
			Body:       truncatedBody,
		}
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return result, nil
}

func LimitStringLength(s string, max int) (string, bool) {
	asRunes := []rune(s)

	if len(asRunes) > max {
		return string(asRunes[:max]), true
	}

	return s, false
}
