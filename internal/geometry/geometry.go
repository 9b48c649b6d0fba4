// Package geometry derives finger dimensions from hand landmarks.
package geometry

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/ringfit/internal/detector"
)

const (
	// PalmPriorMM is the assumed adult palm width between index and pinky MCP.
	PalmPriorMM = 79.0
	// MinPalmWidthPX is the smallest palm span that yields a usable ratio.
	MinPalmWidthPX = 10.0

	knuckleRatio = 0.82
	midRatio     = 0.78
	tipRatio     = 0.68
	// TipTaper caps the tip width relative to the mid segment.
	TipTaper = 0.95

	minTilt = 0.85
	maxTilt = 1.0

	rotationNewWeight = 0.3
)

// ErrPalmUndefined is returned when the palm is too small in the frame to
// calibrate against.
var ErrPalmUndefined = errors.New("palm width undefined")

// Frame is the pixel size of the image landmarks were detected in.
type Frame struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the frame area in square pixels.
func (f Frame) Area() float64 {
	return float64(f.Width) * float64(f.Height)
}

// Box is an axis-aligned bounding box. Center and size are normalized.
type Box struct {
	MinX     float64 `json:"min_x"`
	MinY     float64 `json:"min_y"`
	MaxX     float64 `json:"max_x"`
	MaxY     float64 `json:"max_y"`
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	WidthPX  float64 `json:"width_px"`
	HeightPX float64 `json:"height_px"`
}

// Bounds returns the bounding box of all landmarks.
func Bounds(h detector.HandLandmarks, f Frame) Box {
	b := Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range h.Points {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	b.CenterX = (b.MinX + b.MaxX) / 2
	b.CenterY = (b.MinY + b.MaxY) / 2
	b.Width = b.MaxX - b.MinX
	b.Height = b.MaxY - b.MinY
	b.WidthPX = b.Width * float64(f.Width)
	b.HeightPX = b.Height * float64(f.Height)
	return b
}

// RotationDeg returns the orientation of the ring finger (MCP to tip) in
// degrees, offset so an upright finger reads 0.
func RotationDeg(h detector.HandLandmarks, f Frame) float64 {
	mcp, tip := h.At(detector.RingMCP), h.At(detector.RingTip)
	dx := (tip.X - mcp.X) * float64(f.Width)
	dy := (tip.Y - mcp.Y) * float64(f.Height)
	return math.Atan2(dy, dx)*180/math.Pi + 90
}

// RotationSmoother blends successive rotations, 0.3 new to 0.7 history.
type RotationSmoother struct {
	value  float64
	primed bool
}

// Smooth folds deg into the running value and returns it.
func (s *RotationSmoother) Smooth(deg float64) float64 {
	if !s.primed {
		s.value = deg
		s.primed = true
		return deg
	}
	s.value = rotationNewWeight*deg + (1-rotationNewWeight)*s.value
	return s.value
}

// Reset forgets the running value.
func (s *RotationSmoother) Reset() {
	*s = RotationSmoother{}
}

// Tilt describes how far the palm plane is turned away from the camera.
type Tilt struct {
	// Factor is |n.z|/|n| of the palm normal after clamping to [0.85, 1].
	Factor float64 `json:"factor"`
	// Compensation is 1/Factor.
	Compensation float64 `json:"compensation"`
	// Clamped is set when the raw factor fell below the lower bound.
	Clamped bool `json:"clamped"`
}

func vec(p detector.Point3D) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// PalmTilt computes the palm normal from wrist, index MCP and pinky MCP.
// A degenerate palm is treated as facing the camera.
func PalmTilt(h detector.HandLandmarks) Tilt {
	wrist := vec(h.At(detector.Wrist))
	a := vec(h.At(detector.IndexMCP)).Sub(wrist)
	b := vec(h.At(detector.PinkyMCP)).Sub(wrist)
	n := a.Cross(b)

	factor := 1.0
	if norm := n.Norm(); norm > 0 {
		factor = math.Abs(n.Z) / norm
	}

	t := Tilt{Factor: factor}
	if factor < minTilt {
		t.Factor = minTilt
		t.Clamped = true
	}
	if t.Factor > maxTilt {
		t.Factor = maxTilt
	}
	t.Compensation = 1 / t.Factor
	return t
}

// Segments holds tilt-compensated ring finger widths in pixels.
type Segments struct {
	KnucklePX float64 `json:"knuckle_px"`
	MidPX     float64 `json:"mid_px"`
	TipPX     float64 `json:"tip_px"`
}

// SegmentWidths estimates the ring finger width at each phalanx from its
// length. The tip never exceeds TipTaper of the mid width.
func SegmentWidths(h detector.HandLandmarks, f Frame, tilt Tilt) Segments {
	knuckle := h.PixelDistance(detector.RingMCP, detector.RingPIP, f.Width, f.Height) * knuckleRatio
	mid := h.PixelDistance(detector.RingPIP, detector.RingDIP, f.Width, f.Height) * midRatio
	tip := h.PixelDistance(detector.RingDIP, detector.RingTip, f.Width, f.Height) * tipRatio
	tip = math.Min(tip, mid*TipTaper)

	c := tilt.Compensation
	return Segments{KnucklePX: knuckle * c, MidPX: mid * c, TipPX: tip * c}
}

// PalmWidthPX is the pixel distance between index and pinky MCP.
func PalmWidthPX(h detector.HandLandmarks, f Frame) float64 {
	return h.PixelDistance(detector.IndexMCP, detector.PinkyMCP, f.Width, f.Height)
}

// PalmPriorRatio returns millimetres per pixel assuming the palm spans
// PalmPriorMM.
func PalmPriorRatio(palmPX float64) (float64, error) {
	if math.IsNaN(palmPX) || palmPX < MinPalmWidthPX {
		return 0, ErrPalmUndefined
	}
	return PalmPriorMM / palmPX, nil
}
