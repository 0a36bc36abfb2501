// Package posfile reads precise point positioning solution files (.pos) as
// produced by the NRCan CSRS-PPP service. Four header layouts are in
// circulation across the archive years; parsing tries each known format in
// order and reports all attempts when none matches.
package posfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Record is one position solution row with angles assembled to fractional
// degrees.
type Record struct {
	Time      time.Time
	Longitude float64
	Latitude  float64
	Elevation float64
	Sats      float64
	GDOP      float64
	DayOfYear float64
}

// ErrUnrecognizedFormat reports that no known .pos layout matched a file.
var ErrUnrecognizedFormat = errors.New("unrecognized position file format")

// UnrecognizedFormatError carries the per-format failure detail for one file.
type UnrecognizedFormatError struct {
	Path     string
	Attempts []string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Path, ErrUnrecognizedFormat, strings.Join(e.Attempts, "; "))
}

func (e *UnrecognizedFormatError) Unwrap() error { return ErrUnrecognizedFormat }

// ParseFile reads one .pos file. Rows come back in ascending time order even
// when the file itself is written newest-first.
func ParseFile(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw, path)
}

func parse(raw []byte, path string) ([]Record, error) {
	attempts := make([]string, 0, len(formats))
	for _, f := range formats {
		recs, err := f.parse(raw)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", f.name, err))
			continue
		}
		return recs, nil
	}
	return nil, &UnrecognizedFormatError{Path: path, Attempts: attempts}
}
