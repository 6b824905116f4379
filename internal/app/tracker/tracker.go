package tracker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/francois-poidevin/stationtracker/internal/app/feed"
	"github.com/francois-poidevin/stationtracker/internal/app/tools"
	"github.com/sirupsen/logrus"
)

// State - step of the per body tick cycle
type State int

const (
	Idle State = iota
	Polling
	Updated
	Skipped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Recorder receives tick outcomes, e.g. for metrics. Implementations must be safe
// for concurrent use.
type Recorder interface {
	TickObserved(body string, outcome string, duration time.Duration)
	PathReset(body string)
	Position(body string, sample app.GeoSample)
}

// BodyContext - everything the tracker knows about one body. Only the body's own
// task reads or writes it.
type BodyContext struct {
	Body   app.TrackedBody
	Source feed.Source
	State  State
	Last   app.GeoSample
	// HasLast is false until the first successful tick
	HasLast bool
	Trace   *tools.PathTrace
}

// Tracker drives every tracked body on its own timer and forwards the result to the surfaces.
type Tracker struct {
	Log          *logrus.Logger
	Surfaces     []app.Surface
	Metrics      Recorder
	FetchTimeout time.Duration

	mu     sync.Mutex
	bodies []*BodyContext
	tasks  []*Task
}

const defaultFetchTimeout = 10 * time.Second

func New(log *logrus.Logger, surfaces []app.Surface, metrics Recorder) *Tracker {
	return &Tracker{
		Log:          log,
		Surfaces:     surfaces,
		Metrics:      metrics,
		FetchTimeout: defaultFetchTimeout,
	}
}

// Add registers a body. maxPathPoints bounds its trace, 0 keeps everything.
func (t *Tracker) Add(body app.TrackedBody, source feed.Source, maxPathPoints int) *BodyContext {
	bc := &BodyContext{
		Body:   body,
		Source: source,
		State:  Idle,
		Trace:  tools.NewPathTrace(maxPathPoints),
	}
	t.mu.Lock()
	t.bodies = append(t.bodies, bc)
	t.mu.Unlock()
	return bc
}

// Bodies returns the registered bodies.
func (t *Tracker) Bodies() []*BodyContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*BodyContext, len(t.bodies))
	copy(out, t.bodies)
	return out
}

// Start schedules one task per body.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tasks) > 0 {
		return fmt.Errorf("tracker already started")
	}
	for _, bc := range t.bodies {
		if bc.Body.RefreshInterval <= 0 {
			return fmt.Errorf("body %s: refresh interval must be positive, got %s", bc.Body.ID, bc.Body.RefreshInterval)
		}
	}

	for _, bc := range t.bodies {
		bc := bc
		t.Log.WithContext(ctx).WithFields(logrus.Fields{
			"body":       bc.Body.ID,
			"dataSource": bc.Body.DataSource,
			"refresh":    bc.Body.RefreshInterval,
		}).Info("Start tracking")
		t.tasks = append(t.tasks, Schedule(ctx, bc.Body.RefreshInterval, func(ctx context.Context, now time.Time) {
			t.Tick(ctx, bc, now)
		}))
	}
	return nil
}

// Stop stops every task and waits for them.
func (t *Tracker) Stop() {
	t.mu.Lock()
	tasks := t.tasks
	t.tasks = nil
	t.mu.Unlock()

	for _, task := range tasks {
		task.Stop()
	}
}

// Tick runs one Polling -> Updated|Skipped cycle for bc. Failures leave the last
// known position and the trace untouched.
func (t *Tracker) Tick(ctx context.Context, bc *BodyContext, now time.Time) State {
	start := time.Now()
	bc.State = Polling

	timeout := t.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	sample, err := bc.Source.Sample(cctx, now)
	cancel()

	if err == nil {
		sample.Longitude = tools.NormalizeLongitude(sample.Longitude)
		if math.IsNaN(sample.Longitude) {
			err = fmt.Errorf("%w: longitude is not finite", feed.ErrParse)
		}
	}
	if err != nil {
		bc.State = Skipped
		t.Log.WithContext(ctx).WithFields(logrus.Fields{
			"body":  bc.Body.ID,
			"Error": err,
		}).Warn("Skip tick")
		if t.Metrics != nil {
			t.Metrics.TickObserved(bc.Body.ID, bc.State.String(), time.Since(start))
		}
		return bc.State
	}

	t.render(ctx, bc, sample)

	bc.Last = sample
	bc.HasLast = true
	bc.State = Updated

	t.Log.WithContext(ctx).WithFields(logrus.Fields{
		"body":      bc.Body.ID,
		"latitude":  sample.Latitude,
		"longitude": sample.Longitude,
		"altitude":  sample.Altitude,
	}).Debug("Position updated")

	if t.Metrics != nil {
		t.Metrics.TickObserved(bc.Body.ID, bc.State.String(), time.Since(start))
		t.Metrics.Position(bc.Body.ID, sample)
	}
	return bc.State
}

// render applies the antimeridian policy: a step across ±180 is split, the path
// is closed on the boundary and a new one starts from the opposite boundary.
func (t *Tracker) render(ctx context.Context, bc *BodyContext, sample app.GeoSample) {
	id := bc.Body.ID
	pt := tools.Point{Lat: sample.Latitude, Lon: sample.Longitude}

	if prev, ok := bc.Trace.Last(); ok && tools.DetectAntimeridianCrossing(prev.Lon, pt.Lon) {
		segs := tools.SplitAtAntimeridian(prev, pt)
		closing, opening := segs[0].End, segs[1].Start

		t.forEach(ctx, id, "append path point", func(s app.Surface) error {
			return s.AppendPathPoint(ctx, id, closing.Lat, closing.Lon)
		})
		bc.Trace.Reset()
		t.forEach(ctx, id, "reset path", func(s app.Surface) error {
			return s.ResetPath(ctx, id)
		})
		bc.Trace.Append(opening)
		t.forEach(ctx, id, "append path point", func(s app.Surface) error {
			return s.AppendPathPoint(ctx, id, opening.Lat, opening.Lon)
		})

		t.Log.WithContext(ctx).WithFields(logrus.Fields{
			"body":     id,
			"from":     prev.Lon,
			"to":       pt.Lon,
			"crossing": closing.Lat,
		}).Debug("Antimeridian crossed, path restarted")
		if t.Metrics != nil {
			t.Metrics.PathReset(id)
		}
	}

	bc.Trace.Append(pt)
	t.forEach(ctx, id, "append path point", func(s app.Surface) error {
		return s.AppendPathPoint(ctx, id, pt.Lat, pt.Lon)
	})
	t.forEach(ctx, id, "set marker position", func(s app.Surface) error {
		return s.SetMarkerPosition(ctx, bc.Body, sample)
	})
}

func (t *Tracker) forEach(ctx context.Context, id, op string, fn func(s app.Surface) error) {
	for _, s := range t.Surfaces {
		if err := fn(s); err != nil {
			t.Log.WithContext(ctx).WithFields(logrus.Fields{
				"body":      id,
				"operation": op,
				"Error":     err,
			}).Error("Surface update failed")
		}
	}
}
