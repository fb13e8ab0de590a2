// Package geo holds location fixes and the distance policy that decides
// whether a fix is far enough from the last query to warrant a new one.
package geo

import (
	"fmt"
	"time"
)

// Fix is one location sample reported by a location provider.
type Fix struct {
	Latitude  float64   `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	Time      time.Time `json:"time,omitzero" yaml:"time,omitempty"`
}

func NewFix(lat, lon float64) Fix {
	return Fix{Latitude: lat, Longitude: lon, Time: time.Now()}
}

func (f Fix) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", f.Latitude, f.Longitude)
}
