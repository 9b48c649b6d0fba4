package geometry

import (
	"math"

	"github.com/ayusman/ringfit/internal/detector"
)

// Point is a normalized 2D image position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Coverage is the palm polygon area as a percentage of the frame, in [0, 100].
func Coverage(h detector.HandLandmarks, f Frame) float64 {
	if f.Area() <= 0 {
		return 0
	}
	w, ht := float64(f.Width), float64(f.Height)
	poly := detector.PalmPolygon
	var area float64
	for i := range poly {
		p1 := h.At(poly[i])
		p2 := h.At(poly[(i+1)%len(poly)])
		area += p1.X*w*p2.Y*ht - p2.X*w*p1.Y*ht
	}
	area = math.Abs(area) / 2
	return math.Max(0, math.Min(100, area/f.Area()*100))
}

// RingCenter is where a ring sits: midway between ring PIP and DIP.
func RingCenter(h detector.HandLandmarks) Point {
	pip, dip := h.At(detector.RingPIP), h.At(detector.RingDIP)
	return Point{X: (pip.X + dip.X) / 2, Y: (pip.Y + dip.Y) / 2}
}

// RingDiameterPX converts a ring diameter to pixels at the palm's scale.
func RingDiameterPX(diameterMM, palmPX float64) float64 {
	return diameterMM * palmPX / PalmPriorMM
}

// PalmFacing reports whether the palm is nearer the camera than the
// fingertips.
func PalmFacing(h detector.HandLandmarks) bool {
	var palm, tips float64
	for _, r := range detector.PalmPolygon {
		palm += h.At(r).Z
	}
	for _, r := range detector.Fingertips {
		tips += h.At(r).Z
	}
	return palm/float64(len(detector.PalmPolygon)) < tips/float64(len(detector.Fingertips))
}
