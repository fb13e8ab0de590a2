package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/defeedco/wanderlens/pkg/tracking"
)

const defaultLimit = 20

type Handler struct {
	tracker *tracking.Tracker
	logger  *zerolog.Logger
}

type GetLocationImagesInput struct {
	Limit *int `json:"limit,omitempty" jsonschema:"Maximum number of image URLs to return (default 20)"`
}

type GetLocationImagesOutput struct {
	URLs  []string `json:"urls" jsonschema:"Image URLs of places visited in this session, most recent first"`
	Total int      `json:"total" jsonschema:"Number of images collected in this session"`
}

type GetTrackingStatusInput struct{}

type TrackingStatusOutput struct {
	Running     bool    `json:"running" jsonschema:"Whether a tracking session is running"`
	SessionID   string  `json:"sessionId,omitempty" jsonschema:"Identifier of the running session"`
	StartedAt   string  `json:"startedAt,omitempty" jsonschema:"The timestamp when the session started"`
	Streaming   bool    `json:"streaming" jsonschema:"Whether the location source is still delivering fixes"`
	InFlight    bool    `json:"inFlight" jsonschema:"Whether a photo search is running"`
	LastQueried *LatLon `json:"lastQueried,omitempty" jsonschema:"Location of the last successful search"`
	ResultCount int     `json:"resultCount" jsonschema:"Number of images collected in this session"`
}

type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type SetTrackingInput struct {
	Enabled bool `json:"enabled" jsonschema:"Start tracking when true, stop and clear results when false"`
}

func NewHandler(
	tracker *tracking.Tracker,
	logger *zerolog.Logger,
) http.Handler {
	h := &Handler{
		tracker: tracker,
		logger:  logger,
	}

	getServer := func(r *http.Request) *mcp.Server {
		logger.Debug().
			Str("remote_addr", r.RemoteAddr).
			Msg("Creating new MCP server instance for request")

		mcpServer := mcp.NewServer(&mcp.Implementation{
			Name:    "wanderlens-mcp-server",
			Version: "v0.1.0",
		}, nil)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        "get_location_images",
			Description: "Retrieve photos of the places visited during the current tracking session, most recent first",
		}, h.getLocationImages)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        "get_tracking_status",
			Description: "Report whether location tracking is running and what it has found so far",
		}, h.getTrackingStatus)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        "set_tracking",
			Description: "Start or stop location tracking",
		}, h.setTracking)

		return mcpServer
	}

	return mcp.NewStreamableHTTPHandler(getServer, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})
}

func (h *Handler) getLocationImages(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetLocationImagesInput,
) (*mcp.CallToolResult, GetLocationImagesOutput, error) {
	limit := defaultLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	if limit < 1 {
		return nil, GetLocationImagesOutput{}, fmt.Errorf("limit must be positive, got %d", limit)
	}

	urls := h.tracker.Snapshot()
	total := len(urls)
	if len(urls) > limit {
		urls = urls[:limit]
	}

	return nil, GetLocationImagesOutput{
		URLs:  urls,
		Total: total,
	}, nil
}

func (h *Handler) getTrackingStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetTrackingStatusInput,
) (*mcp.CallToolResult, TrackingStatusOutput, error) {
	return nil, h.status(), nil
}

func (h *Handler) setTracking(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetTrackingInput,
) (*mcp.CallToolResult, TrackingStatusOutput, error) {
	if !input.Enabled {
		h.tracker.Stop()
		return nil, h.status(), nil
	}

	// Tool calls are short lived; the session is not.
	_, err := h.tracker.Start(context.Background())
	if err != nil && !errors.Is(err, tracking.ErrAlreadyTracking) {
		return nil, TrackingStatusOutput{}, fmt.Errorf("start tracking: %w", err)
	}

	return nil, h.status(), nil
}

func (h *Handler) status() TrackingStatusOutput {
	status := h.tracker.Status()

	out := TrackingStatusOutput{
		InFlight:    status.InFlight,
		ResultCount: status.ResultCount,
	}
	if status.LastQueried != nil {
		out.LastQueried = &LatLon{
			Latitude:  status.LastQueried.Latitude,
			Longitude: status.LastQueried.Longitude,
		}
	}

	if session, ok := h.tracker.Session(); ok {
		out.Running = true
		out.SessionID = session.ID.String()
		out.StartedAt = session.StartedAt.Format(time.RFC3339)
		out.Streaming = session.Streaming
	}

	return out
}
