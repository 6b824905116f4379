package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/francois-poidevin/stationtracker/internal/app"
)

// TrackerCollector bundles Prometheus metrics for the tracking loop. It satisfies
// tracker.Recorder.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	Ticks         *prometheus.CounterVec
	TickDurations *prometheus.HistogramVec
	PathResets    *prometheus.CounterVec
	Latitude      *prometheus.GaugeVec
	Longitude     *prometheus.GaugeVec
	Altitude      *prometheus.GaugeVec
	LastUpdate    *prometheus.GaugeVec
}

// NewTrackerCollector registers tracker metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationtracker_ticks_total",
		Help: "Tracking ticks, labeled by body and outcome (updated or skipped).",
	}, []string{"body", "outcome"}), "stationtracker_ticks_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stationtracker_tick_duration_seconds",
		Help:    "Time to fetch or propagate one position, in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"body"}), "stationtracker_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	resets, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationtracker_path_resets_total",
		Help: "Paths restarted because the body crossed the antimeridian.",
	}, []string{"body"}), "stationtracker_path_resets_total")
	if err != nil {
		return nil, err
	}

	gauges := make([]*prometheus.GaugeVec, 0, 4)
	for _, g := range []struct{ name, help string }{
		{"stationtracker_latitude_degrees", "Last known latitude."},
		{"stationtracker_longitude_degrees", "Last known longitude, in [-180,180)."},
		{"stationtracker_altitude_kilometers", "Last known altitude."},
		{"stationtracker_last_update_timestamp_seconds", "Timestamp of the last known position."},
	} {
		vec, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, []string{"body"}), g.name)
		if err != nil {
			return nil, err
		}
		gauges = append(gauges, vec)
	}

	return &TrackerCollector{
		gatherer:      gatherer,
		Ticks:         ticks,
		TickDurations: durations,
		PathResets:    resets,
		Latitude:      gauges[0],
		Longitude:     gauges[1],
		Altitude:      gauges[2],
		LastUpdate:    gauges[3],
	}, nil
}

func (c *TrackerCollector) TickObserved(body, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(body, outcome).Inc()
	c.TickDurations.WithLabelValues(body).Observe(d.Seconds())
}

func (c *TrackerCollector) PathReset(body string) {
	if c == nil {
		return
	}
	c.PathResets.WithLabelValues(body).Inc()
}

func (c *TrackerCollector) Position(body string, s app.GeoSample) {
	if c == nil {
		return
	}
	c.Latitude.WithLabelValues(body).Set(s.Latitude)
	c.Longitude.WithLabelValues(body).Set(s.Longitude)
	c.Altitude.WithLabelValues(body).Set(s.Altitude)
	c.LastUpdate.WithLabelValues(body).Set(float64(s.Timestamp))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register adds c to reg. A collector already registered under the same
// descriptor is reused, so several collectors can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var zero T
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return zero, err
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return zero, fmt.Errorf("%s already registered as %T", name, are.ExistingCollector)
	}
	return existing, nil
}
