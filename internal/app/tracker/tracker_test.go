package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/francois-poidevin/stationtracker/internal/app/feed"
	"github.com/francois-poidevin/stationtracker/internal/app/tools"
	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Formatter = new(logrus.TextFormatter)
	log.Formatter.(*logrus.TextFormatter).DisableColors = true
	log.Formatter.(*logrus.TextFormatter).DisableTimestamp = true
	log.Level = logrus.TraceLevel
	log.Out = ioutil.Discard
}

// scriptedSource replays samples and errors in order, then repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps []step
	calls int
}

type step struct {
	sample app.GeoSample
	err    error
}

func (s *scriptedSource) Sample(ctx context.Context, now time.Time) (app.GeoSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	s.calls++
	return s.steps[idx].sample, s.steps[idx].err
}

func at(lat, lon float64) step {
	return step{sample: app.GeoSample{Latitude: lat, Longitude: lon, Altitude: 420, Speed: 27600, Timestamp: 1700000000}}
}

func failing(err error) step {
	return step{err: err}
}

// recordingSurface keeps the command stream.
type recordingSurface struct {
	mu       sync.Mutex
	commands []string
	markers  int
	fail     bool
}

func (r *recordingSurface) Init(ctx context.Context) error { return nil }
func (r *recordingSurface) Close() error                   { return nil }

func (r *recordingSurface) SetMarkerPosition(ctx context.Context, body app.TrackedBody, s app.GeoSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers++
	r.commands = append(r.commands, fmt.Sprintf("marker %s %g,%g", body.ID, s.Latitude, s.Longitude))
	if r.fail {
		return errors.New("surface down")
	}
	return nil
}

func (r *recordingSurface) AppendPathPoint(ctx context.Context, id string, lat, lon float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, fmt.Sprintf("append %s %g,%g", id, lat, lon))
	return nil
}

func (r *recordingSurface) ResetPath(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, "reset "+id)
	return nil
}

func (r *recordingSurface) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	resets   int
}

func (c *countingRecorder) TickObserved(body, outcome string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}

func (c *countingRecorder) PathReset(body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *countingRecorder) Position(body string, s app.GeoSample) {}

var iss = app.TrackedBody{ID: "iss", DisplayName: "ISS", DataSource: app.RestPolled, RefreshInterval: 5 * time.Second}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTickAppendsWithoutCrossing(t *testing.T) {
	surface := &recordingSurface{}
	tr := New(log, []app.Surface{surface}, nil)
	bc := tr.Add(iss, &scriptedSource{steps: []step{at(10, 170), at(11, 175)}}, 0)

	if bc.State != Idle {
		t.Fatalf("new body should be idle, got %s", bc.State)
	}
	ctx := context.Background()
	tr.Tick(ctx, bc, time.Now())
	if got := tr.Tick(ctx, bc, time.Now()); got != Updated {
		t.Fatalf("expected updated, got %s", got)
	}

	want := []string{
		"append iss 10,170", "marker iss 10,170",
		"append iss 11,175", "marker iss 11,175",
	}
	if got := surface.snapshot(); !equal(got, want) {
		t.Fatalf("commands\n got %v\nwant %v", got, want)
	}
	if pts := bc.Trace.Points(); len(pts) != 2 || pts[1] != (tools.Point{Lat: 11, Lon: 175}) {
		t.Fatalf("unexpected trace %+v", pts)
	}
}

func TestTickResetsOnAntimeridianCrossing(t *testing.T) {
	surface := &recordingSurface{}
	rec := &countingRecorder{}
	tr := New(log, []app.Surface{surface}, rec)
	bc := tr.Add(iss, &scriptedSource{steps: []step{at(10, 170), at(12, -170)}}, 0)

	ctx := context.Background()
	tr.Tick(ctx, bc, time.Now())
	tr.Tick(ctx, bc, time.Now())

	want := []string{
		"append iss 10,170", "marker iss 10,170",
		"append iss 11,180", "reset iss", "append iss 11,-180",
		"append iss 12,-170", "marker iss 12,-170",
	}
	if got := surface.snapshot(); !equal(got, want) {
		t.Fatalf("commands\n got %v\nwant %v", got, want)
	}

	pts := bc.Trace.Points()
	if len(pts) != 2 || pts[0] != (tools.Point{Lat: 11, Lon: -180}) || pts[1] != (tools.Point{Lat: 12, Lon: -170}) {
		t.Fatalf("new trace should start on the boundary, got %+v", pts)
	}
	if rec.resets != 1 {
		t.Fatalf("expected one path reset recorded, got %d", rec.resets)
	}
}

func TestTickNormalizesLongitude(t *testing.T) {
	surface := &recordingSurface{}
	tr := New(log, []app.Surface{surface}, nil)
	bc := tr.Add(iss, &scriptedSource{steps: []step{at(0, 190)}}, 0)

	tr.Tick(context.Background(), bc, time.Now())
	if bc.Last.Longitude != -170 {
		t.Fatalf("expected normalized longitude -170, got %v", bc.Last.Longitude)
	}
}

func TestTickSkipsOnFailure(t *testing.T) {
	for _, cause := range []error{feed.ErrNetwork, feed.ErrParse, feed.ErrPropagationUnavailable} {
		t.Run(cause.Error(), func(t *testing.T) {
			surface := &recordingSurface{}
			rec := &countingRecorder{}
			tr := New(log, []app.Surface{surface}, rec)
			bc := tr.Add(iss, &scriptedSource{steps: []step{
				at(10, 170),
				failing(fmt.Errorf("%w: boom", cause)),
			}}, 0)

			ctx := context.Background()
			tr.Tick(ctx, bc, time.Now())
			before := bc.Trace.Points()
			commands := len(surface.snapshot())

			if got := tr.Tick(ctx, bc, time.Now()); got != Skipped {
				t.Fatalf("expected skipped, got %s", got)
			}
			if !bc.HasLast || bc.Last.Longitude != 170 {
				t.Fatalf("last known position should persist, got %+v", bc.Last)
			}
			after := bc.Trace.Points()
			if len(after) != len(before) || after[0] != before[0] {
				t.Fatalf("trace modified by a failed tick: %+v -> %+v", before, after)
			}
			if len(surface.snapshot()) != commands {
				t.Fatalf("surfaces should not be touched on a failed tick")
			}
			if rec.outcomes["skipped"] != 1 || rec.outcomes["updated"] != 1 {
				t.Fatalf("unexpected outcomes %v", rec.outcomes)
			}
		})
	}
}

func TestTickRecoversAfterFailure(t *testing.T) {
	tr := New(log, nil, nil)
	bc := tr.Add(iss, &scriptedSource{steps: []step{failing(feed.ErrNetwork), at(1, 2)}}, 0)

	ctx := context.Background()
	if got := tr.Tick(ctx, bc, time.Now()); got != Skipped || bc.HasLast {
		t.Fatalf("first tick should be skipped without a last position")
	}
	if got := tr.Tick(ctx, bc, time.Now()); got != Updated || !bc.HasLast {
		t.Fatalf("second tick should update")
	}
}

func TestSurfaceErrorDoesNotStopTick(t *testing.T) {
	broken := &recordingSurface{fail: true}
	healthy := &recordingSurface{}
	tr := New(log, []app.Surface{broken, healthy}, nil)
	bc := tr.Add(iss, &scriptedSource{steps: []step{at(1, 2)}}, 0)

	if got := tr.Tick(context.Background(), bc, time.Now()); got != Updated {
		t.Fatalf("surface failure should not skip the tick, got %s", got)
	}
	if healthy.markers != 1 {
		t.Fatalf("healthy surface should still get the marker")
	}
}

func TestStartAndStop(t *testing.T) {
	surface := &recordingSurface{}
	tr := New(log, []app.Surface{surface}, nil)
	fast := app.TrackedBody{ID: "css", DataSource: app.TLEPropagated, RefreshInterval: 10 * time.Millisecond}
	src := &scriptedSource{steps: []step{at(1, 2)}}
	tr.Add(fast, src, 0)

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Start(context.Background()); err == nil {
		t.Fatalf("second Start should fail")
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		src.mu.Lock()
		calls := src.calls
		src.mu.Unlock()
		if calls >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 ticks, got %d", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}
	tr.Stop()

	src.mu.Lock()
	stopped := src.calls
	src.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.calls != stopped {
		t.Fatalf("ticks after Stop: %d -> %d", stopped, src.calls)
	}
}

func TestStartRejectsZeroInterval(t *testing.T) {
	tr := New(log, nil, nil)
	tr.Add(app.TrackedBody{ID: "broken"}, &scriptedSource{steps: []step{at(0, 0)}}, 0)
	if err := tr.Start(context.Background()); err == nil {
		t.Fatal("expected an error for a zero refresh interval")
	}
}
