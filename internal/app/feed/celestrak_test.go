package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchTLE(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`[{"OBJECT_NAME":"CSS (TIANHE)","OBJECT_ID":"2021-035A","NORAD_CAT_ID":48274,
			"TLE_LINE0":"0 CSS (TIANHE)","TLE_LINE1":"` + cssLine1 + `","TLE_LINE2":"` + cssLine2 + `"}]`))
	}))
	defer srv.Close()

	tle, err := FetchTLE(context.Background(), srv.Client(), srv.URL+"/NORAD/elements/gp.php", "CSS (TIANHE)")
	if err != nil {
		t.Fatalf("FetchTLE: %v", err)
	}
	if gotQuery["NAME"][0] != "CSS (TIANHE)" || gotQuery["FORMAT"][0] != "json" {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if tle.Name != "CSS (TIANHE)" || tle.CatalogNumber != 48274 || tle.Line1 != cssLine1 || tle.Line2 != cssLine2 {
		t.Fatalf("unexpected TLE %+v", tle)
	}
}

func TestDecodeCelestrak(t *testing.T) {
	text := "ISS (ZARYA)             \r\n" + issLine1 + "\r\n" + issLine2 + "\r\n"
	tle, err := decodeCelestrak("ISS (ZARYA)", []byte(text))
	if err != nil {
		t.Fatalf("three-line answer: %v", err)
	}
	if tle.Name != "ISS (ZARYA)" || tle.CatalogNumber != 25544 {
		t.Fatalf("unexpected TLE %+v", tle)
	}

	for name, body := range map[string]string{
		"no data":    "No GP data found",
		"empty list": "[]",
		"bad json":   `[{"TLE_LINE1": 12}]`,
		"bad TLE":    `[{"OBJECT_NAME":"X","TLE_LINE1":"1 00000","TLE_LINE2":"2 00000"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeCelestrak("X", []byte(body)); !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}
