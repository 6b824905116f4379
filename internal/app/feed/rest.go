package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"net/http"

	"github.com/francois-poidevin/stationtracker/internal/app"
)

// RestFormat - payload layout of a satellite-tracking REST endpoint
type RestFormat string

const (
	FormatWhereTheISS RestFormat = "WHERETHEISS"
	FormatN2YO        RestFormat = "N2YO"
)

// whereTheISSPosition - api.wheretheiss.at/v1/satellites/{id} response (units=kilometers)
type whereTheISSPosition struct {
	Name       string   `json:"name"`
	ID         int      `json:"id"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Altitude   float64  `json:"altitude"` //km
	Velocity   float64  `json:"velocity"` //km/h
	Visibility string   `json:"visibility"`
	Timestamp  int64    `json:"timestamp"`
	SolarLat   float64  `json:"solar_lat"`
	SolarLon   float64  `json:"solar_lon"`
}

// n2yoPositions - api.n2yo.com/rest/v1/satellite/positions response
type n2yoPositions struct {
	Info struct {
		SatName string `json:"satname"`
		SatID   int    `json:"satid"`
	} `json:"info"`
	Positions []struct {
		SatLatitude  float64 `json:"satlatitude"`
		SatLongitude float64 `json:"satlongitude"`
		SatAltitude  float64 `json:"sataltitude"` //km
		Timestamp    int64   `json:"timestamp"`
	} `json:"positions"`
}

// FetchRestPosition issues one GET against a wheretheiss.at-like endpoint.
func FetchRestPosition(ctx context.Context, client *http.Client, endpoint string) (app.GeoSample, error) {
	body, err := get(ctx, client, endpoint)
	if err != nil {
		return app.GeoSample{}, err
	}
	return decodeWhereTheISS(body)
}

// FetchN2YOPosition issues one GET against the N2YO positions endpoint.
// N2YO does not report speed.
func FetchN2YOPosition(ctx context.Context, client *http.Client, endpoint string) (app.GeoSample, error) {
	body, err := get(ctx, client, endpoint)
	if err != nil {
		return app.GeoSample{}, err
	}
	return decodeN2YO(body)
}

func get(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s returned %s", ErrNetwork, endpoint, resp.Status)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return body, nil
}

func decodeWhereTheISS(body []byte) (app.GeoSample, error) {
	var pos whereTheISSPosition
	if err := json.Unmarshal(body, &pos); err != nil {
		return app.GeoSample{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if pos.Latitude == nil || pos.Longitude == nil {
		return app.GeoSample{}, fmt.Errorf("%w: latitude/longitude missing", ErrParse)
	}
	sample := app.GeoSample{
		Latitude:   *pos.Latitude,
		Longitude:  *pos.Longitude,
		Altitude:   pos.Altitude,
		Speed:      pos.Velocity,
		Timestamp:  pos.Timestamp,
		Visibility: pos.Visibility,
	}
	if err := checkSample(sample); err != nil {
		return app.GeoSample{}, err
	}
	return sample, nil
}

func decodeN2YO(body []byte) (app.GeoSample, error) {
	var data n2yoPositions
	if err := json.Unmarshal(body, &data); err != nil {
		return app.GeoSample{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(data.Positions) == 0 {
		return app.GeoSample{}, fmt.Errorf("%w: no position for satellite %d", ErrParse, data.Info.SatID)
	}
	pos := data.Positions[0]
	sample := app.GeoSample{
		Latitude:  pos.SatLatitude,
		Longitude: pos.SatLongitude,
		Altitude:  pos.SatAltitude,
		Timestamp: pos.Timestamp,
	}
	if err := checkSample(sample); err != nil {
		return app.GeoSample{}, err
	}
	return sample, nil
}

func checkSample(s app.GeoSample) error {
	if math.IsNaN(s.Latitude) || math.IsInf(s.Latitude, 0) || s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrParse, s.Latitude)
	}
	if math.IsNaN(s.Longitude) || math.IsInf(s.Longitude, 0) {
		return fmt.Errorf("%w: longitude %v is not finite", ErrParse, s.Longitude)
	}
	return nil
}
