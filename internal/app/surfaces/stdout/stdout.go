package stdout

import (
	"context"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/sirupsen/logrus"
)

// StdOutSurface writes every rendering command to the logger.
type StdOutSurface struct {
	Log *logrus.Logger
}

func New(log *logrus.Logger) app.Surface {
	return &StdOutSurface{Log: log}
}

func (s *StdOutSurface) Init(ctx context.Context) error {
	//Nothing to do here
	return nil
}

func (s *StdOutSurface) SetMarkerPosition(ctx context.Context, body app.TrackedBody, sample app.GeoSample) error {
	fields := logrus.Fields{
		"body":      body.ID,
		"name":      body.DisplayName,
		"latitude":  sample.Latitude,
		"longitude": sample.Longitude,
		"altitude":  sample.Altitude,
		"speed":     sample.Speed,
		"timestamp": sample.Timestamp,
	}
	if sample.Visibility != "" {
		fields["visibility"] = sample.Visibility
	}
	s.Log.WithContext(ctx).WithFields(fields).Info("Marker")
	return nil
}

func (s *StdOutSurface) AppendPathPoint(ctx context.Context, id string, lat, lon float64) error {
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"body":      id,
		"latitude":  lat,
		"longitude": lon,
	}).Debug("Path point")
	return nil
}

func (s *StdOutSurface) ResetPath(ctx context.Context, id string) error {
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"body": id,
	}).Info("Path restarted")
	return nil
}

func (s *StdOutSurface) Close() error {
	return nil
}
