package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/francois-poidevin/stationtracker/internal/app"
)

func TestRestSource(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"info":{"satid":25544},"positions":[{"satlatitude":1,"satlongitude":2,"sataltitude":400,"timestamp":0}]}`)
	src := &RestSource{Client: srv.Client(), Endpoint: srv.URL, Format: FormatN2YO}

	now := time.Unix(1700000000, 0)
	sample, err := src.Sample(context.Background(), now)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if sample.Timestamp != now.Unix() {
		t.Fatalf("missing timestamp should default to now, got %d", sample.Timestamp)
	}

	src.Format = "XML"
	if _, err := src.Sample(context.Background(), now); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for unknown format, got %v", err)
	}
}

func TestTLESourcePropagationUnavailable(t *testing.T) {
	tle, err := ParseTLE("ISS", issLine1, issLine2)
	if err != nil {
		t.Fatalf("ParseTLE: %v", err)
	}
	src := NewInlineTLESource(discardLogger(), tle)
	src.Propagate = func(TLE, time.Time) (app.GeoSample, bool) { return app.GeoSample{}, false }

	if _, err := src.Sample(context.Background(), time.Now()); !errors.Is(err, ErrPropagationUnavailable) {
		t.Fatalf("expected ErrPropagationUnavailable, got %v", err)
	}
}

func TestTLESourceRefresh(t *testing.T) {
	var calls, fail int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if atomic.LoadInt32(&fail) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"OBJECT_NAME":"CSS (TIANHE)","TLE_LINE1":"` + cssLine1 + `","TLE_LINE2":"` + cssLine2 + `"}]`))
	}))
	defer srv.Close()

	src := NewCelestrakSource(discardLogger(), srv.Client(), srv.URL, "CSS (TIANHE)", time.Hour)
	var propagated int
	src.Propagate = func(tle TLE, at time.Time) (app.GeoSample, bool) {
		propagated++
		return app.GeoSample{Latitude: 1, Longitude: 2, Timestamp: at.Unix()}, true
	}

	start := time.Date(2025, time.May, 18, 12, 0, 0, 0, time.UTC)
	if _, err := src.Sample(context.Background(), start); err != nil {
		t.Fatalf("first sample: %v", err)
	}
	if _, err := src.Sample(context.Background(), start.Add(time.Second)); err != nil {
		t.Fatalf("second sample: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("TLE should be fetched once within refresh age, got %d fetches", n)
	}

	// a failed refresh keeps the loaded element set
	atomic.StoreInt32(&fail, 1)
	if _, err := src.Sample(context.Background(), start.Add(2*time.Hour)); err != nil {
		t.Fatalf("sample after failed refresh: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected a refresh attempt, got %d fetches", n)
	}
	if tle, ok := src.TLE(); !ok || tle.CatalogNumber != 48274 {
		t.Fatalf("previous TLE should be kept, got %+v", tle)
	}
	if propagated != 3 {
		t.Fatalf("expected 3 propagations, got %d", propagated)
	}

	// no new attempt before RetryAge, then one without waiting a full RefreshAge
	atomic.StoreInt32(&fail, 0)
	if _, err := src.Sample(context.Background(), start.Add(2*time.Hour+time.Minute)); err != nil {
		t.Fatalf("sample within retry age: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("no fetch expected within retry age, got %d fetches", n)
	}
	if _, err := src.Sample(context.Background(), start.Add(2*time.Hour+DefaultTLERetry)); err != nil {
		t.Fatalf("sample after retry age: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected a retry after %s, got %d fetches", DefaultTLERetry, n)
	}
}

func TestTLESourceFirstFetchRetriedNextTick(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"OBJECT_NAME":"CSS (TIANHE)","TLE_LINE1":"` + cssLine1 + `","TLE_LINE2":"` + cssLine2 + `"}]`))
	}))
	defer srv.Close()

	src := NewCelestrakSource(discardLogger(), srv.Client(), srv.URL, "CSS (TIANHE)", time.Hour)
	src.Propagate = func(tle TLE, at time.Time) (app.GeoSample, bool) { return app.GeoSample{Timestamp: at.Unix()}, true }

	now := time.Date(2025, time.May, 18, 12, 0, 0, 0, time.UTC)
	if _, err := src.Sample(context.Background(), now); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if _, err := src.Sample(context.Background(), now.Add(time.Second)); err != nil {
		t.Fatalf("second tick should fetch again: %v", err)
	}
}

func TestTLESourceWithoutTLE(t *testing.T) {
	srv := serve(t, http.StatusForbidden, "")
	src := NewCelestrakSource(discardLogger(), srv.Client(), srv.URL, "CSS (TIANHE)", time.Hour)
	if _, err := src.Sample(context.Background(), time.Now()); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork without any TLE, got %v", err)
	}
}
