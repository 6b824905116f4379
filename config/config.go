package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/francois-poidevin/stationtracker/internal/app/surfaces/file"
	"github.com/francois-poidevin/stationtracker/internal/app/surfaces/ws"
)

// Configuration contains tracking settings
type Configuration struct {
	Log struct {
		Level string `toml:"level" default:"info" comment:"Log level: trace, debug, info, warn, error, fatal and panic"`
	} `toml:"Log" comment:"###############################\n Logs Settings \n##############################"`

	Stationtracker struct {
		Surfaces      string             `toml:"surfaces" default:"STDOUT" comment:"comma separated surfaces: STDOUT, FILE, WS"`
		Maxpathpoints int                `toml:"maxpathpoints" default:"5000" comment:"points kept in a body path, 0 for no limit"`
		Fetchtimeout  int                `toml:"fetchtimeout" default:"10" comment:"timeout of one REST call, in seconds"`
		Iss           ISS                `toml:"iss" comment:"###############################\n International Space Station \n##############################"`
		Tiangong      Tiangong           `toml:"tiangong" comment:"###############################\n Tiangong space station \n##############################"`
		File          file.Configuration `toml:"file" comment:"###############################\n file surface configuration \n##############################"`
		Ws            ws.Configuration   `toml:"ws" comment:"###############################\n websocket surface configuration \n##############################"`
	} `toml:"Stationtracker" comment:"###############################\n Stationtracker Settings \n##############################"`
}

// ISS settings, polled on wheretheiss.at by default
type ISS struct {
	Enabled    bool   `toml:"enabled" default:"true" comment:"track this body"`
	Name       string `toml:"name" default:"ISS (ZARYA)" comment:"display name"`
	Source     string `toml:"source" default:"REST" comment:"REST or TLE"`
	Endpoint   string `toml:"endpoint" default:"https://api.wheretheiss.at/v1/satellites/25544" comment:"REST endpoint, REST source only"`
	Format     string `toml:"format" default:"WHERETHEISS" comment:"REST payload: WHERETHEISS or N2YO"`
	Celestrak  string `toml:"celestrak" default:"ISS (ZARYA)" comment:"CelesTrak object name, TLE source only"`
	Gpurl      string `toml:"gpurl" default:"https://celestrak.org/NORAD/elements/gp.php" comment:"CelesTrak GP endpoint, TLE source only"`
	Line1      string `toml:"line1" default:"" comment:"inline TLE line 1, replaces the CelesTrak fetch"`
	Line2      string `toml:"line2" default:"" comment:"inline TLE line 2"`
	Refresh    int    `toml:"refresh" default:"5000" comment:"refresh timing in ms"`
	Tlerefresh int    `toml:"tlerefresh" default:"12" comment:"age in hours after which the TLE is fetched again"`
	Tlemaxage  int    `toml:"tlemaxage" default:"30" comment:"days around the TLE epoch in which propagated positions are trusted, 0 for no limit"`
}

// Tiangong settings, propagated from the CelesTrak TLE by default
type Tiangong struct {
	Enabled    bool   `toml:"enabled" default:"true" comment:"track this body"`
	Name       string `toml:"name" default:"Tiangong" comment:"display name"`
	Source     string `toml:"source" default:"TLE" comment:"REST or TLE"`
	Endpoint   string `toml:"endpoint" default:"" comment:"REST endpoint, REST source only (e.g. N2YO positions URL with apiKey)"`
	Format     string `toml:"format" default:"N2YO" comment:"REST payload: WHERETHEISS or N2YO"`
	Celestrak  string `toml:"celestrak" default:"CSS (TIANHE)" comment:"CelesTrak object name, TLE source only"`
	Gpurl      string `toml:"gpurl" default:"https://celestrak.org/NORAD/elements/gp.php" comment:"CelesTrak GP endpoint, TLE source only"`
	Line1      string `toml:"line1" default:"" comment:"inline TLE line 1, replaces the CelesTrak fetch"`
	Line2      string `toml:"line2" default:"" comment:"inline TLE line 2"`
	Refresh    int    `toml:"refresh" default:"1000" comment:"refresh timing in ms"`
	Tlerefresh int    `toml:"tlerefresh" default:"12" comment:"age in hours after which the TLE is fetched again"`
	Tlemaxage  int    `toml:"tlemaxage" default:"30" comment:"days around the TLE epoch in which propagated positions are trusted, 0 for no limit"`
}

// Body - settings of one tracked body, whichever station it is
type Body struct {
	ID         string
	Enabled    bool
	Name       string
	Source     app.DataSource
	Endpoint   string
	Format     string
	Celestrak  string
	GPURL      string
	Line1      string
	Line2      string
	Refresh    time.Duration
	TLERefresh time.Duration
	TLEMaxAge  time.Duration
}

func (c ISS) Body() Body {
	return Body{
		ID:         "iss",
		Enabled:    c.Enabled,
		Name:       c.Name,
		Source:     app.DataSource(strings.ToUpper(c.Source)),
		Endpoint:   c.Endpoint,
		Format:     strings.ToUpper(c.Format),
		Celestrak:  c.Celestrak,
		GPURL:      c.Gpurl,
		Line1:      c.Line1,
		Line2:      c.Line2,
		Refresh:    time.Duration(c.Refresh) * time.Millisecond,
		TLERefresh: time.Duration(c.Tlerefresh) * time.Hour,
		TLEMaxAge:  time.Duration(c.Tlemaxage) * 24 * time.Hour,
	}
}

func (c Tiangong) Body() Body {
	return Body{
		ID:         "tiangong",
		Enabled:    c.Enabled,
		Name:       c.Name,
		Source:     app.DataSource(strings.ToUpper(c.Source)),
		Endpoint:   c.Endpoint,
		Format:     strings.ToUpper(c.Format),
		Celestrak:  c.Celestrak,
		GPURL:      c.Gpurl,
		Line1:      c.Line1,
		Line2:      c.Line2,
		Refresh:    time.Duration(c.Refresh) * time.Millisecond,
		TLERefresh: time.Duration(c.Tlerefresh) * time.Hour,
		TLEMaxAge:  time.Duration(c.Tlemaxage) * 24 * time.Hour,
	}
}

// TrackedBody - the tracker view of the body
func (b Body) TrackedBody() app.TrackedBody {
	return app.TrackedBody{
		ID:              b.ID,
		DisplayName:     b.Name,
		DataSource:      b.Source,
		RefreshInterval: b.Refresh,
	}
}

// Bodies returns the enabled bodies.
func (c Configuration) Bodies() []Body {
	var out []Body
	for _, b := range []Body{c.Stationtracker.Iss.Body(), c.Stationtracker.Tiangong.Body()} {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

// SurfaceTypes returns the upper-cased surface list.
func (c Configuration) SurfaceTypes() []string {
	var out []string
	for _, s := range strings.Split(c.Stationtracker.Surfaces, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports settings the tracker cannot run with.
func (c Configuration) Validate() error {
	bodies := c.Bodies()
	if len(bodies) == 0 {
		return errors.New("No body enabled")
	}
	if c.Stationtracker.Maxpathpoints < 0 {
		return fmt.Errorf("maxpathpoints can't be negative, got %d", c.Stationtracker.Maxpathpoints)
	}
	if c.Stationtracker.Fetchtimeout < 0 {
		return fmt.Errorf("fetchtimeout can't be negative, got %d", c.Stationtracker.Fetchtimeout)
	}
	if c.Stationtracker.File.Keeppaths < 0 {
		return fmt.Errorf("file keeppaths can't be negative, got %d", c.Stationtracker.File.Keeppaths)
	}
	for _, b := range bodies {
		if b.TLERefresh < 0 || b.TLEMaxAge < 0 {
			return fmt.Errorf("%s: tlerefresh and tlemaxage can't be negative", b.ID)
		}
		if b.Refresh <= 0 {
			return fmt.Errorf("%s: refresh has to be positive, got %s", b.ID, b.Refresh)
		}
		switch b.Source {
		case app.RestPolled:
			if b.Format != "WHERETHEISS" && b.Format != "N2YO" {
				return fmt.Errorf("%s: unknown REST format %q", b.ID, b.Format)
			}
			if b.Endpoint == "" {
				return fmt.Errorf("%s: REST source needs an endpoint", b.ID)
			}
		case app.TLEPropagated:
			if (b.Line1 == "") != (b.Line2 == "") {
				return fmt.Errorf("%s: inline TLE needs both lines", b.ID)
			}
			if b.Line1 == "" && (b.GPURL == "" || b.Celestrak == "") {
				return fmt.Errorf("%s: TLE source needs inline lines or a CelesTrak endpoint and name", b.ID)
			}
		default:
			return fmt.Errorf("%s: unknown source %q, need REST or TLE", b.ID, b.Source)
		}
	}
	for _, s := range c.SurfaceTypes() {
		if s != "STDOUT" && s != "FILE" && s != "WS" {
			return fmt.Errorf("Wrong surface specified: %q", s)
		}
	}
	if len(c.SurfaceTypes()) == 0 {
		return errors.New("No surface specified")
	}
	return nil
}
