package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// FileSurface keeps the current picture of every body (marker, current path,
// a few closed paths) and rewrites it as a GeoJSON FeatureCollection on each
// marker update.
type FileSurface struct {
	Log  *logrus.Logger
	conf Configuration

	mu     sync.Mutex
	bodies map[string]*view
}

type view struct {
	body    app.TrackedBody
	marker  *app.GeoSample
	current orb.LineString
	closed  []orb.LineString
}

func New(log *logrus.Logger, conf Configuration) app.Surface {
	return &FileSurface{Log: log, conf: conf, bodies: map[string]*view{}}
}

func (s *FileSurface) Init(ctx context.Context) error {
	if s.conf.Output == "" {
		return errors.New("No output file for the GeoJSON surface")
	}
	dir := filepath.Dir(s.conf.Output)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			s.Log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Unable to create folder '" + dir + "'")
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx)
}

func (s *FileSurface) SetMarkerPosition(ctx context.Context, body app.TrackedBody, sample app.GeoSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(body.ID)
	v.body = body
	v.marker = &sample
	return s.write(ctx)
}

func (s *FileSurface) AppendPathPoint(ctx context.Context, id string, lat, lon float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(id)
	v.current = append(v.current, orb.Point{lon, lat})
	return nil
}

func (s *FileSurface) ResetPath(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(id)
	keep := s.conf.Keeppaths
	if keep < 0 {
		keep = 0
	}
	if len(v.current) > 0 {
		v.closed = append(v.closed, v.current)
		if len(v.closed) > keep {
			v.closed = v.closed[len(v.closed)-keep:]
		}
	}
	v.current = nil
	return nil
}

func (s *FileSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(context.Background())
}

func (s *FileSurface) view(id string) *view {
	v, ok := s.bodies[id]
	if !ok {
		v = &view{body: app.TrackedBody{ID: id}}
		s.bodies[id] = v
	}
	return v
}

// FeatureCollection builds the current picture.
func (s *FileSurface) FeatureCollection() *geojson.FeatureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection()
}

func (s *FileSurface) collection() *geojson.FeatureCollection {
	ids := make([]string, 0, len(s.bodies))
	for id := range s.bodies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		v := s.bodies[id]

		lines := make([]orb.LineString, 0, len(v.closed)+1)
		lines = append(append(lines, v.closed...), v.current)
		paths := orb.MultiLineString{}
		for _, ls := range lines {
			if len(ls) > 1 {
				paths = append(paths, ls)
			}
		}
		if len(paths) > 0 {
			f := geojson.NewFeature(paths)
			f.ID = id + "-path"
			f.Properties["body"] = id
			f.Properties["kind"] = "path"
			fc.Append(f)
		}

		if v.marker != nil {
			f := geojson.NewFeature(orb.Point{v.marker.Longitude, v.marker.Latitude})
			f.ID = id
			f.Properties["body"] = id
			f.Properties["name"] = v.body.DisplayName
			f.Properties["kind"] = "marker"
			f.Properties["altitude"] = v.marker.Altitude
			f.Properties["speed"] = v.marker.Speed
			f.Properties["timestamp"] = v.marker.Timestamp
			if v.marker.Visibility != "" {
				f.Properties["visibility"] = v.marker.Visibility
			}
			fc.Append(f)
		}
	}
	return fc
}

// write replaces the output file, going through a temporary file so readers never see half a document.
func (s *FileSurface) write(ctx context.Context) error {
	data, err := json.Marshal(s.collection())
	if err != nil {
		return err
	}

	tmp, err := ioutil.TempFile(filepath.Dir(s.conf.Output), ".stationtracker-*.geojson")
	if err != nil {
		s.Log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": err,
		}).Error("Unable to Open file")
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.conf.Output); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"length": len(data),
		"file":   s.conf.Output,
	}).Debug("Wrote")
	return nil
}
