package geometry

import (
	"fmt"
	"math"

	"github.com/ayusman/ringfit/internal/detector"
)

// ZoneName identifies where along the finger a width was taken.
type ZoneName string

const (
	Knuckle ZoneName = "Knuckle"
	Mid     ZoneName = "Mid"
	Tip     ZoneName = "Tip"
)

// Zone is a finger width at one position with its uncertainty.
type Zone struct {
	Name            ZoneName `json:"name"`
	WidthMM         float64  `json:"width_mm"`
	CircumferenceMM float64  `json:"circumference_mm"`
	Confidence      int      `json:"confidence"`
	ErrorMM         float64  `json:"error_mm"`
}

func newZone(name ZoneName, widthMM float64, confidence int, errMM float64) Zone {
	return Zone{
		Name:            name,
		WidthMM:         widthMM,
		CircumferenceMM: widthMM * math.Pi,
		Confidence:      confidence,
		ErrorMM:         errMM,
	}
}

// Zones converts landmark segment widths to millimetres.
func Zones(seg Segments, mmPerPX float64) []Zone {
	mid := seg.MidPX * mmPerPX
	tip := math.Min(seg.TipPX*mmPerPX, mid*TipTaper)
	return []Zone{
		newZone(Knuckle, seg.KnucklePX*mmPerPX, 82, 0.7),
		newZone(Mid, mid, 80, 0.8),
		newZone(Tip, tip, 82, 0.8),
	}
}

// SpreadZones derives the three zones from a single measured finger width,
// as reported by cloud analysis.
func SpreadZones(widthMM float64, confidence int, errMM float64) []Zone {
	return []Zone{
		newZone(Knuckle, widthMM*0.95, confidence, errMM),
		newZone(Mid, widthMM, confidence, errMM),
		newZone(Tip, widthMM*0.9, confidence, errMM),
	}
}

// CheckTaper returns an error when the tip zone is wider than TipTaper of
// the mid zone.
func CheckTaper(zones []Zone) error {
	var mid, tip *Zone
	for i := range zones {
		switch zones[i].Name {
		case Mid:
			mid = &zones[i]
		case Tip:
			tip = &zones[i]
		}
	}
	if mid == nil || tip == nil {
		return nil
	}
	// Allow for rounding in the multiplication.
	if tip.WidthMM > mid.WidthMM*TipTaper+1e-9 {
		return fmt.Errorf("tip %.2f mm wider than %.0f%% of mid %.2f mm", tip.WidthMM, TipTaper*100, mid.WidthMM)
	}
	return nil
}

// Estimate is the geometric reading of one hand pose.
type Estimate struct {
	Box           Box      `json:"box"`
	Zones         []Zone   `json:"zones"`
	Segments      Segments `json:"segments"`
	RotationDeg   float64  `json:"rotation_deg"`
	Tilt          Tilt     `json:"tilt"`
	PalmWidthPX   float64  `json:"palm_width_px"`
	MMPerPX       float64  `json:"mm_per_px"`
	FingerWidthMM float64  `json:"finger_width_mm"`
	Coverage      float64  `json:"coverage"`
}

// Measure runs the full landmark geometry for a hand at the given scale.
func Measure(h detector.HandLandmarks, f Frame, mmPerPX float64) Estimate {
	tilt := PalmTilt(h)
	seg := SegmentWidths(h, f, tilt)
	zones := Zones(seg, mmPerPX)
	return Estimate{
		Box:           Bounds(h, f),
		Zones:         zones,
		Segments:      seg,
		RotationDeg:   RotationDeg(h, f),
		Tilt:          tilt,
		PalmWidthPX:   PalmWidthPX(h, f),
		MMPerPX:       mmPerPX,
		FingerWidthMM: math.Max(zones[0].WidthMM, zones[1].WidthMM),
		Coverage:      Coverage(h, f),
	}
}

// MeasureWithPalm measures h using the palm prior for scale.
func MeasureWithPalm(h detector.HandLandmarks, f Frame) (Estimate, error) {
	ratio, err := PalmPriorRatio(PalmWidthPX(h, f))
	if err != nil {
		return Estimate{}, err
	}
	return Measure(h, f, ratio), nil
}
