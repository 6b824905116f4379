package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const tleLineLength = 69

// TLE - two-line element set of one body, immutable once parsed
type TLE struct {
	Name          string    `json:"name"`
	Line1         string    `json:"line1"`
	Line2         string    `json:"line2"`
	CatalogNumber int       `json:"catalogNumber"`
	Epoch         time.Time `json:"epoch"`
}

// ParseTLE checks the fixed layout of both lines (length, line number, checksum,
// numeric columns) and extracts catalog number and epoch.
func ParseTLE(name, line1, line2 string) (TLE, error) {
	line1 = strings.TrimRight(line1, " \r\n")
	line2 = strings.TrimRight(line2, " \r\n")

	for idx, line := range []string{line1, line2} {
		if len(line) != tleLineLength {
			return TLE{}, fmt.Errorf("%w: TLE line %d is %d characters long, need %d", ErrParse, idx+1, len(line), tleLineLength)
		}
		if line[0] != byte('1'+idx) || line[1] != ' ' {
			return TLE{}, fmt.Errorf("%w: TLE line %d has to start with '%d '", ErrParse, idx+1, idx+1)
		}
		want := int(line[68] - '0')
		if got := Checksum(line); want != got {
			return TLE{}, fmt.Errorf("%w: TLE line %d checksum is %d, computed %d", ErrParse, idx+1, want, got)
		}
	}

	catnum1 := strings.TrimSpace(line1[2:7])
	catnum2 := strings.TrimSpace(line2[2:7])
	if catnum1 != catnum2 {
		return TLE{}, fmt.Errorf("%w: TLE lines describe %s and %s", ErrParse, catnum1, catnum2)
	}
	catnum, err := strconv.Atoi(catnum1)
	if err != nil {
		return TLE{}, fmt.Errorf("%w: catalog number %q", ErrParse, catnum1)
	}

	epoch, err := parseEpoch(line1[18:32])
	if err != nil {
		return TLE{}, err
	}

	if err := checkPropagatorColumns(line1, line2); err != nil {
		return TLE{}, err
	}

	return TLE{
		Name:          strings.TrimSpace(name),
		Line1:         line1,
		Line2:         line2,
		CatalogNumber: catnum,
		Epoch:         epoch,
	}, nil
}

// Checksum - modulo 10 sum of the digits of the first 68 characters, '-' counts 1
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < tleLineLength-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// parseEpoch - YYDDD.DDDDDDDD, two-digit years above 56 are 19xx
func parseEpoch(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	if len(field) < 3 {
		return time.Time{}, fmt.Errorf("%w: TLE epoch %q", ErrParse, field)
	}
	year, err := strconv.Atoi(field[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: TLE epoch year %q", ErrParse, field[:2])
	}
	if year > 56 {
		year += 1900
	} else {
		year += 2000
	}
	day, err := strconv.ParseFloat(field[2:], 64)
	if err != nil || day < 1 || day >= 367 {
		return time.Time{}, fmt.Errorf("%w: TLE epoch day %q", ErrParse, field[2:])
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}

// checkPropagatorColumns reads every column exactly the way go-satellite does
// (raw slices, at most two blanks removed, implied decimal points). The library
// exits the process on a column it cannot parse, so nothing it would reject may
// get past ParseTLE.
func checkPropagatorColumns(line1, line2 string) error {
	squeeze := func(s string) string { return strings.Replace(s, " ", "", 2) }

	ints := []struct{ name, value string }{
		{"catalog number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.ParseInt(f.value, 10, 0); err != nil {
			return fmt.Errorf("%w: TLE %s %q", ErrParse, f.name, f.value)
		}
	}

	floats := []struct{ name, value string }{
		{"epoch day", line1[20:32]},
		{"mean motion first derivative", squeeze(line1[33:43])},
		{"mean motion second derivative", squeeze(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52])},
		{"drag term", squeeze(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61])},
		{"inclination", squeeze(line2[8:16])},
		{"right ascension", squeeze(line2[17:25])},
		{"eccentricity", "." + line2[26:33]},
		{"argument of perigee", squeeze(line2[34:42])},
		{"mean anomaly", squeeze(line2[43:51])},
		{"mean motion", squeeze(line2[52:63])},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(f.value, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: TLE %s %q", ErrParse, f.name, f.value)
		}
	}
	return nil
}
