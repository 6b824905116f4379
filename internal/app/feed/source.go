package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/sirupsen/logrus"
)

// Source produces the current position of one body.
type Source interface {
	Sample(ctx context.Context, now time.Time) (app.GeoSample, error)
}

// RestSource - a polled satellite-tracking REST endpoint
type RestSource struct {
	Client   *http.Client
	Endpoint string
	Format   RestFormat
}

func (s *RestSource) Sample(ctx context.Context, now time.Time) (app.GeoSample, error) {
	var (
		sample app.GeoSample
		err    error
	)
	switch s.Format {
	case FormatN2YO:
		sample, err = FetchN2YOPosition(ctx, s.Client, s.Endpoint)
	case FormatWhereTheISS, "":
		sample, err = FetchRestPosition(ctx, s.Client, s.Endpoint)
	default:
		return app.GeoSample{}, fmt.Errorf("%w: unknown REST format %q", ErrParse, s.Format)
	}
	if err != nil {
		return app.GeoSample{}, err
	}
	if sample.Timestamp == 0 {
		sample.Timestamp = now.Unix()
	}
	return sample, nil
}

// DefaultTLERetry - delay before fetching again after a failed refresh
const DefaultTLERetry = 5 * time.Minute

// TLESource - positions propagated on-device from an element set.
// The element set is either given once, or fetched from CelesTrak and
// fetched again when older than RefreshAge. A failed refresh keeps the
// previous element set and is tried again after RetryAge.
type TLESource struct {
	Log        *logrus.Logger
	Client     *http.Client
	Endpoint   string
	Name       string
	RefreshAge time.Duration
	RetryAge   time.Duration
	Propagate  Propagator

	tle       *TLE
	nextFetch time.Time
	static    bool
}

// NewInlineTLESource propagates a fixed element set.
func NewInlineTLESource(log *logrus.Logger, tle TLE) *TLESource {
	return &TLESource{Log: log, Propagate: PropagateFromTLE, tle: &tle, static: true}
}

// NewCelestrakSource propagates the element set CelesTrak publishes for name.
func NewCelestrakSource(log *logrus.Logger, client *http.Client, endpoint, name string, refreshAge time.Duration) *TLESource {
	return &TLESource{
		Log:        log,
		Client:     client,
		Endpoint:   endpoint,
		Name:       name,
		RefreshAge: refreshAge,
		RetryAge:   DefaultTLERetry,
		Propagate:  PropagateFromTLE,
	}
}

// TLE returns the element set in use, if one is loaded.
func (s *TLESource) TLE() (TLE, bool) {
	if s.tle == nil {
		return TLE{}, false
	}
	return *s.tle, true
}

func (s *TLESource) Sample(ctx context.Context, now time.Time) (app.GeoSample, error) {
	if err := s.ensureTLE(ctx, now); err != nil {
		return app.GeoSample{}, err
	}

	propagate := s.Propagate
	if propagate == nil {
		propagate = PropagateFromTLE
	}
	sample, ok := propagate(*s.tle, now)
	if !ok {
		return app.GeoSample{}, fmt.Errorf("%w: %s at %s (TLE epoch %s)", ErrPropagationUnavailable,
			s.tle.Name, now.UTC().Format(time.RFC3339), s.tle.Epoch.Format(time.RFC3339))
	}
	return sample, nil
}

func (s *TLESource) ensureTLE(ctx context.Context, now time.Time) error {
	if s.tle != nil && (s.static || s.RefreshAge <= 0 || now.Before(s.nextFetch)) {
		return nil
	}

	tle, err := FetchTLE(ctx, s.Client, s.Endpoint, s.Name)
	if err != nil {
		// nothing to propagate yet, the next tick fetches again
		if s.tle == nil {
			return err
		}
		retry := s.RetryAge
		if retry <= 0 || retry > s.RefreshAge {
			retry = s.RefreshAge
		}
		s.nextFetch = now.Add(retry)
		if s.Log != nil {
			s.Log.WithContext(ctx).WithFields(logrus.Fields{
				"name":  s.Name,
				"epoch": s.tle.Epoch,
				"retry": retry,
				"Error": err,
			}).Warn("Unable to refresh TLE, keep the previous one")
		}
		return nil
	}

	if s.Log != nil {
		s.Log.WithContext(ctx).WithFields(logrus.Fields{
			"name":    tle.Name,
			"catalog": tle.CatalogNumber,
			"epoch":   tle.Epoch,
		}).Info("TLE loaded")
	}
	s.tle = &tle
	s.nextFetch = now.Add(s.RefreshAge)
	return nil
}
