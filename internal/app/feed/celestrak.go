package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// celestrakGP - one record of celestrak.org/NORAD/elements/gp.php?FORMAT=json
type celestrakGP struct {
	ObjectName string `json:"OBJECT_NAME"`
	ObjectID   string `json:"OBJECT_ID"`
	NoradCatID int    `json:"NORAD_CAT_ID"`
	Line1      string `json:"TLE_LINE1"`
	Line2      string `json:"TLE_LINE2"`
}

// FetchTLE asks CelesTrak for the current element set of the named object.
// The JSON array answer is expected; a plain three-line TLE answer is accepted too.
func FetchTLE(ctx context.Context, client *http.Client, endpoint, name string) (TLE, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return TLE{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	q := u.Query()
	q.Set("NAME", name)
	q.Set("FORMAT", "json")
	u.RawQuery = q.Encode()

	body, err := get(ctx, client, u.String())
	if err != nil {
		return TLE{}, err
	}
	return decodeCelestrak(name, body)
}

func decodeCelestrak(name string, body []byte) (TLE, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var records []celestrakGP
		if err := json.Unmarshal(body, &records); err != nil {
			return TLE{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		for _, r := range records {
			if r.Line1 != "" && r.Line2 != "" {
				return ParseTLE(r.ObjectName, r.Line1, r.Line2)
			}
		}
		return TLE{}, fmt.Errorf("%w: no element set for %q", ErrParse, name)
	}

	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	for i := 0; i+1 < len(lines); i++ {
		if strings.HasPrefix(lines[i], "1 ") && strings.HasPrefix(lines[i+1], "2 ") {
			objectName := name
			if i > 0 {
				objectName = lines[i-1]
			}
			return ParseTLE(objectName, lines[i], lines[i+1])
		}
	}
	return TLE{}, fmt.Errorf("%w: no element set for %q in %q", ErrParse, name, firstLine(body))
}

func firstLine(body []byte) string {
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		return string(body[:idx])
	}
	return string(body)
}
