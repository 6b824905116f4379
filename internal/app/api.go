package app

import (
	"context"
	"time"
)

// DataSource - how a tracked body gets its position
type DataSource string

const (
	RestPolled    DataSource = "REST"
	TLEPropagated DataSource = "TLE"
)

// TrackedBody - a space station followed by the tracker
type TrackedBody struct {
	ID              string        `json:"id"`
	DisplayName     string        `json:"displayName"`
	DataSource      DataSource    `json:"dataSource"`
	RefreshInterval time.Duration `json:"refreshInterval"`
}

// GeoSample - one instantaneous reading of a body position
type GeoSample struct {
	Latitude   float64 `json:"latitude"`  //degree
	Longitude  float64 `json:"longitude"` //degree, [-180,180)
	Altitude   float64 `json:"altitude"`  //km
	Speed      float64 `json:"speed"`     //km/h
	Timestamp  int64   `json:"timestamp"` //unix seconds
	Visibility string  `json:"visibility,omitempty"`
}

const (
	KMSKMH = 3600.0
)

// Surface receives rendering commands for tracked bodies (map, globe, log ...)
type Surface interface {
	Init(ctx context.Context) error
	SetMarkerPosition(ctx context.Context, body TrackedBody, sample GeoSample) error
	AppendPathPoint(ctx context.Context, id string, lat, lon float64) error
	ResetPath(ctx context.Context, id string) error
	Close() error
}
