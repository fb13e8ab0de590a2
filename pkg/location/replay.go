package location

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/defeedco/wanderlens/pkg/geo"
	"github.com/defeedco/wanderlens/pkg/lib"
)

// Track is a recorded sequence of fixes.
type Track struct {
	Name  string    `json:"name" yaml:"name"`
	Fixes []geo.Fix `json:"fixes" yaml:"fixes" validate:"required,min=1,dive"`
}

// LoadTrack reads a JSON or YAML (.yaml/.yml) track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track file: %w", err)
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}

	track, err := ParseTrack(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if track.Name == "" {
		track.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return track, nil
}

func ParseTrack(data []byte, format string) (*Track, error) {
	var track Track

	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &track); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &track); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported track format: %s", format)
	}

	if err := lib.ValidateStruct(&track); err != nil {
		return nil, fmt.Errorf("validate track: %w", err)
	}

	return &track, nil
}

// Replay emits the fixes of a track, one per interval.
type Replay struct {
	track    *Track
	interval time.Duration
	logger   *zerolog.Logger
}

func NewReplay(track *Track, interval time.Duration, logger *zerolog.Logger) *Replay {
	return &Replay{
		track:    track,
		interval: interval,
		logger:   logger,
	}
}

func (r *Replay) Stream(ctx context.Context, fixes chan<- geo.Fix, _ chan<- error) {
	r.logger.Info().
		Str("track", r.track.Name).
		Int("fixes", len(r.track.Fixes)).
		Dur("interval", r.interval).
		Msg("Replaying track")

	var ticker *time.Ticker
	if r.interval > 0 {
		ticker = time.NewTicker(r.interval)
		defer ticker.Stop()
	}

	for i, fix := range r.track.Fixes {
		if i > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}

		if fix.Time.IsZero() {
			fix.Time = time.Now()
		}

		select {
		case <-ctx.Done():
			return
		case fixes <- fix:
		}
	}

	r.logger.Info().
		Str("track", r.track.Name).
		Msg("Track replay finished")
}
