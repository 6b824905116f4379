package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/francois-poidevin/stationtracker/config"
	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/francois-poidevin/stationtracker/internal/app/feed"
	fileSurface "github.com/francois-poidevin/stationtracker/internal/app/surfaces/file"
	stdoutSurface "github.com/francois-poidevin/stationtracker/internal/app/surfaces/stdout"
	wsSurface "github.com/francois-poidevin/stationtracker/internal/app/surfaces/ws"
	"github.com/francois-poidevin/stationtracker/internal/app/tracker"
	"github.com/francois-poidevin/stationtracker/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Execute - start tracking until a signal is caught or ctx is done
func Execute(ctx context.Context,
	log *logrus.Logger,
	conf config.Configuration) error {

	log.WithContext(ctx).WithFields(logrus.Fields{
		"surfaces":      conf.Stationtracker.Surfaces,
		"maxPathPoints": conf.Stationtracker.Maxpathpoints,
		"fetchTimeout":  conf.Stationtracker.Fetchtimeout,
		"outputFile":    conf.Stationtracker.File.Output,
		"wsListen":      conf.Stationtracker.Ws.Listen,
	}).Info("START with Configuration params: ")

	if err := conf.Validate(); err != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": err,
		}).Error("Unable to interpret configuration")
		return err
	}

	metrics, err := observability.NewTrackerCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	surfaces, err := buildSurfaces(log, conf, metrics)
	if err != nil {
		return err
	}
	for _, s := range surfaces {
		if err := s.Init(ctx); err != nil {
			log.WithContext(ctx).Error(err)
			closeSurfaces(ctx, log, surfaces)
			return err
		}
	}
	defer closeSurfaces(ctx, log, surfaces)

	tr, err := buildTracker(log, conf, surfaces, metrics)
	if err != nil {
		return err
	}
	if err := tr.Start(ctx); err != nil {
		return err
	}

	sigCatch(ctx, log)
	tr.Stop()

	return nil
}

// Where - one tick per body, reported on stdout
func Where(ctx context.Context,
	log *logrus.Logger,
	conf config.Configuration) error {

	if err := conf.Validate(); err != nil {
		return err
	}

	tr, err := buildTracker(log, conf, []app.Surface{stdoutSurface.New(log)}, nil)
	if err != nil {
		return err
	}

	updated := 0
	now := time.Now()
	for _, bc := range tr.Bodies() {
		if tr.Tick(ctx, bc, now) == tracker.Updated {
			updated++
		}
	}
	if updated == 0 {
		return errors.New("No position available")
	}
	return nil
}

func buildSurfaces(log *logrus.Logger, conf config.Configuration, metrics *observability.TrackerCollector) ([]app.Surface, error) {
	var surfaces []app.Surface
	for _, kind := range conf.SurfaceTypes() {
		switch kind {
		case "STDOUT":
			log.Info("Initiate stdOut Surface")
			surfaces = append(surfaces, stdoutSurface.New(log))
		case "FILE":
			log.Info("Initiate File Surface")
			surfaces = append(surfaces, fileSurface.New(log, conf.Stationtracker.File))
		case "WS":
			log.Info("Initiate Websocket Surface")
			surfaces = append(surfaces, wsSurface.New(log, conf.Stationtracker.Ws, metrics.Handler()))
		default:
			return nil, fmt.Errorf("Wrong surface specified: %q", kind)
		}
	}
	return surfaces, nil
}

func buildTracker(log *logrus.Logger, conf config.Configuration, surfaces []app.Surface, metrics tracker.Recorder) (*tracker.Tracker, error) {
	tr := tracker.New(log, surfaces, metrics)
	if conf.Stationtracker.Fetchtimeout > 0 {
		tr.FetchTimeout = time.Duration(conf.Stationtracker.Fetchtimeout) * time.Second
	}
	client := &http.Client{Timeout: tr.FetchTimeout}

	for _, b := range conf.Bodies() {
		src, err := buildSource(log, client, b)
		if err != nil {
			log.WithFields(logrus.Fields{
				"body":  b.ID,
				"Error": err,
			}).Error("Unable to build position source")
			return nil, err
		}
		tr.Add(b.TrackedBody(), src, conf.Stationtracker.Maxpathpoints)
	}
	return tr, nil
}

func buildSource(log *logrus.Logger, client *http.Client, b config.Body) (feed.Source, error) {
	switch b.Source {
	case app.RestPolled:
		return &feed.RestSource{Client: client, Endpoint: b.Endpoint, Format: feed.RestFormat(b.Format)}, nil
	case app.TLEPropagated:
		var src *feed.TLESource
		if b.Line1 != "" {
			tle, err := feed.ParseTLE(b.Name, b.Line1, b.Line2)
			if err != nil {
				return nil, err
			}
			src = feed.NewInlineTLESource(log, tle)
		} else {
			src = feed.NewCelestrakSource(log, client, b.GPURL, b.Celestrak, b.TLERefresh)
		}
		src.Propagate = feed.PropagationLimits{MaxAge: b.TLEMaxAge, MaxAltitude: feed.DefaultMaxAltitude}.Propagate
		return src, nil
	}
	return nil, fmt.Errorf("unknown source %q", b.Source)
}

func closeSurfaces(ctx context.Context, log *logrus.Logger, surfaces []app.Surface) {
	for _, s := range surfaces {
		if err := s.Close(); err != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Unable to close surface")
		}
	}
}

// sigCatch blocks until a termination signal or the end of ctx.
func sigCatch(ctx context.Context, log *logrus.Logger) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer signal.Stop(sigc)

	select {
	case s := <-sigc:
		log.WithContext(ctx).Info("Signal: " + s.String())
	case <-ctx.Done():
		log.WithContext(ctx).Info("Context done")
	}
}
