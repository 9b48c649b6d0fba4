// Package sizing maps finger measurements onto the standard ring size chart.
package sizing

import (
	"errors"
	"fmt"
	"math"
)

// MatchToleranceMM is the largest circumference difference accepted when
// looking up the nearest chart row.
const MatchToleranceMM = 5.0

// ErrOutOfRange is returned when a measurement is not close to any chart row.
var ErrOutOfRange = errors.New("measurement outside ring size chart")

// RingSize is a single row of the size chart.
type RingSize struct {
	US              float64 `json:"us"`
	UK              string  `json:"uk"`
	EU              int     `json:"eu"`
	DiameterMM      float64 `json:"diameter_mm"`
	CircumferenceMM float64 `json:"circumference_mm"`
}

// Label returns the US size formatted for display, e.g. "7" or "7.5".
func (r RingSize) Label() string {
	if r.US == math.Trunc(r.US) {
		return fmt.Sprintf("%.0f", r.US)
	}
	return fmt.Sprintf("%.1f", r.US)
}

// chart is ordered by ascending diameter and circumference.
var chart = [...]RingSize{
	{US: 3, UK: "F", EU: 44, DiameterMM: 14.0, CircumferenceMM: 44.0},
	{US: 3.5, UK: "G", EU: 45, DiameterMM: 14.4, CircumferenceMM: 45.2},
	{US: 4, UK: "H", EU: 47, DiameterMM: 14.9, CircumferenceMM: 46.8},
	{US: 4.5, UK: "I", EU: 48, DiameterMM: 15.3, CircumferenceMM: 48.0},
	{US: 5, UK: "J", EU: 49, DiameterMM: 15.7, CircumferenceMM: 49.3},
	{US: 5.5, UK: "K", EU: 51, DiameterMM: 16.1, CircumferenceMM: 50.6},
	{US: 6, UK: "L", EU: 52, DiameterMM: 16.5, CircumferenceMM: 51.9},
	{US: 6.5, UK: "M", EU: 53, DiameterMM: 16.9, CircumferenceMM: 53.1},
	{US: 7, UK: "N", EU: 54, DiameterMM: 17.3, CircumferenceMM: 54.4},
	{US: 7.5, UK: "O", EU: 56, DiameterMM: 17.7, CircumferenceMM: 55.7},
	{US: 8, UK: "P", EU: 57, DiameterMM: 18.1, CircumferenceMM: 57.0},
	{US: 8.5, UK: "Q", EU: 58, DiameterMM: 18.5, CircumferenceMM: 58.3},
	{US: 9, UK: "R", EU: 60, DiameterMM: 19.0, CircumferenceMM: 59.5},
	{US: 9.5, UK: "S", EU: 61, DiameterMM: 19.4, CircumferenceMM: 60.8},
	{US: 10, UK: "T", EU: 62, DiameterMM: 19.8, CircumferenceMM: 62.1},
	{US: 10.5, UK: "U", EU: 64, DiameterMM: 20.2, CircumferenceMM: 63.4},
	{US: 11, UK: "V", EU: 65, DiameterMM: 20.6, CircumferenceMM: 64.6},
	{US: 11.5, UK: "W", EU: 66, DiameterMM: 21.0, CircumferenceMM: 65.9},
	{US: 12, UK: "X", EU: 68, DiameterMM: 21.4, CircumferenceMM: 67.2},
	{US: 12.5, UK: "Y", EU: 69, DiameterMM: 21.8, CircumferenceMM: 68.5},
	{US: 13, UK: "Z", EU: 70, DiameterMM: 22.2, CircumferenceMM: 69.7},
}

// Table returns a copy of the size chart.
func Table() []RingSize {
	out := make([]RingSize, len(chart))
	copy(out, chart[:])
	return out
}

// CircumferenceToSize returns the chart row whose circumference is nearest to
// mm. The boolean is false when mm is not a positive finite number or the
// nearest row is further than MatchToleranceMM away.
func CircumferenceToSize(mm float64) (RingSize, bool) {
	if !(mm > 0) || math.IsInf(mm, 0) {
		return RingSize{}, false
	}

	best := 0
	bestDiff := math.Abs(chart[0].CircumferenceMM - mm)
	for i := 1; i < len(chart); i++ {
		diff := math.Abs(chart[i].CircumferenceMM - mm)
		if diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}

	if bestDiff > MatchToleranceMM {
		return RingSize{}, false
	}
	return chart[best], true
}

// DiameterToSize maps an inner diameter in millimetres to the nearest size.
func DiameterToSize(mm float64) (RingSize, bool) {
	return CircumferenceToSize(mm * math.Pi)
}

// Lookup is DiameterToSize with an error instead of a boolean.
func Lookup(diameterMM float64) (RingSize, error) {
	size, ok := DiameterToSize(diameterMM)
	if !ok {
		return RingSize{}, fmt.Errorf("diameter %.1f mm: %w", diameterMM, ErrOutOfRange)
	}
	return size, nil
}

// ByUS returns the chart row for a US size.
func ByUS(us float64) (RingSize, bool) {
	for _, s := range chart {
		if s.US == us {
			return s, true
		}
	}
	return RingSize{}, false
}
