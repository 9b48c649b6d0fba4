// Package placement judges whether a hand is positioned well enough to
// measure and tells the user how to fix it.
package placement

import (
	"math"
	"sort"

	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/geometry"
	"github.com/ayusman/ringfit/internal/tracking"
)

// State is the headline placement verdict.
type State string

const (
	TooClose   State = "too_close"
	TooFar     State = "too_far"
	AngleBad   State = "angle_bad"
	SpacingBad State = "spacing_bad"
	OK         State = "ok"
)

// User-facing hints.
const (
	HintMoveCloser  = "Move closer"
	HintMoveFarther = "Move farther"
	HintRotate      = "Rotate palm to face camera"
	HintSpread      = "Spread fingers slightly"
	HintCenter      = "Center hand in guide"
	HintHoldSteady  = "Hold steady"

	MessageReady  = "Great! Hold perfectly still."
	MessageNoHand = "Place your hand inside the outline."
)

// Config holds the placement thresholds. Widths and positions are fractions
// of the frame, angles are degrees.
type Config struct {
	MinWidth   float64
	MaxWidth   float64
	CenterXMin float64
	CenterXMax float64
	CenterYMin float64
	CenterYMax float64
	AngleMin   float64
	AngleMax   float64
	// MinSpacing is the smallest fingertip gap as a fraction of hand width.
	MinSpacing float64
	// HoldSteady is the stillness at which the hold steady hint appears.
	HoldSteady float64
}

// DefaultConfig returns the standard guide thresholds.
func DefaultConfig() Config {
	return Config{
		MinWidth:   0.22,
		MaxWidth:   0.45,
		CenterXMin: 0.28,
		CenterXMax: 0.72,
		CenterYMin: 0.20,
		CenterYMax: 0.80,
		AngleMin:   60,
		AngleMax:   120,
		MinSpacing: 0.10,
		HoldSteady: tracking.HoldSteadyThreshold,
	}
}

// Checks records the outcome of each individual test.
type Checks struct {
	Size     bool `json:"size"`
	Position bool `json:"position"`
	Angle    bool `json:"angle"`
	Spacing  bool `json:"spacing"`
	Steady   bool `json:"steady"`
}

// Report is the placement verdict for one frame.
type Report struct {
	HandDetected bool         `json:"hand_detected"`
	State        State        `json:"state"`
	Checks       Checks       `json:"checks"`
	Hints        []string     `json:"hints"`
	Message      string       `json:"message"`
	Confidence   int          `json:"confidence"`
	Box          geometry.Box `json:"box"`
	AngleDeg     float64      `json:"angle_deg"`
	Stillness    float64      `json:"stillness"`
}

// Ready reports whether the hand is placed and held still.
func (r Report) Ready() bool {
	return r.State == OK && r.Checks.Steady
}

// Input is one frame's worth of tracking data.
type Input struct {
	// Hand is the (history averaged) pose.
	Hand detector.HandLandmarks
	// Tips are filtered fingertip positions; when empty the tips of Hand
	// are used.
	Tips      []geometry.Point
	Frame     geometry.Frame
	Stillness float64
}

// Validator evaluates hand placement. It holds no per-frame state.
type Validator struct {
	config Config
}

// NewValidator creates a validator with the given thresholds.
func NewValidator(config Config) *Validator {
	return &Validator{config: config}
}

// NoHand is the report for a frame without a hand.
func (v *Validator) NoHand() Report {
	return Report{
		State:   TooFar,
		Hints:   []string{},
		Message: MessageNoHand,
	}
}

// Evaluate runs every check and derives the state, hints and live
// confidence.
func (v *Validator) Evaluate(in Input) Report {
	c := v.config
	f := in.Frame
	box := geometry.Bounds(in.Hand, f)

	minPX := float64(f.Width) * c.MinWidth
	maxPX := float64(f.Width) * c.MaxWidth
	sizeOK := box.WidthPX >= minPX && box.WidthPX <= maxPX

	positionOK := box.CenterX > c.CenterXMin && box.CenterX < c.CenterXMax &&
		box.CenterY > c.CenterYMin && box.CenterY < c.CenterYMax

	angle := handAngle(in.Hand, f)
	angleOK := angle > c.AngleMin && angle < c.AngleMax

	spacingOK := v.spaced(in, box)
	steady := tracking.Steady(in.Stillness)

	r := Report{
		HandDetected: true,
		State:        TooFar,
		Checks: Checks{
			Size:     sizeOK,
			Position: positionOK,
			Angle:    angleOK,
			Spacing:  spacingOK,
			Steady:   steady,
		},
		Hints:     []string{},
		Box:       box,
		AngleDeg:  angle,
		Stillness: in.Stillness,
	}

	if !sizeOK {
		if box.WidthPX < minPX {
			r.Hints = append(r.Hints, HintMoveCloser)
		} else {
			r.Hints = append(r.Hints, HintMoveFarther)
		}
	}
	if !angleOK {
		r.Hints = append(r.Hints, HintRotate)
	}
	if !spacingOK {
		r.Hints = append(r.Hints, HintSpread)
	}
	if !positionOK {
		r.Hints = append(r.Hints, HintCenter)
	}
	if sizeOK && angleOK && spacingOK && in.Stillness >= c.HoldSteady {
		r.Hints = append(r.Hints, HintHoldSteady)
	}

	switch {
	case !sizeOK && box.WidthPX < minPX:
		r.State = TooFar
	case !sizeOK:
		r.State = TooClose
	case !angleOK:
		r.State = AngleBad
	case !spacingOK:
		r.State = SpacingBad
	case positionOK:
		r.State = OK
	}

	if r.State == OK {
		r.Message = MessageReady
	} else {
		r.Message = r.Hints[0]
	}

	r.Confidence = liveConfidence(r.Checks)
	return r
}

func liveConfidence(c Checks) int {
	conf := 50
	if c.Size {
		conf += 10
	}
	if c.Angle {
		conf += 15
	}
	if c.Spacing {
		conf += 15
	}
	if c.Position {
		conf += 10
	}
	return max(0, min(100, conf))
}

// handAngle is the absolute angle of the wrist to middle fingertip vector in
// pixel space; an upright hand reads 90.
func handAngle(h detector.HandLandmarks, f geometry.Frame) float64 {
	wrist, tip := h.At(detector.Wrist), h.At(detector.MiddleTip)
	dx := (tip.X - wrist.X) * float64(f.Width)
	dy := (tip.Y - wrist.Y) * float64(f.Height)
	return math.Abs(math.Atan2(dy, dx) * 180 / math.Pi)
}

func (v *Validator) spaced(in Input, box geometry.Box) bool {
	tips := in.Tips
	if len(tips) == 0 {
		tips = make([]geometry.Point, 0, len(detector.Fingertips))
		for _, r := range detector.Fingertips {
			p := in.Hand.At(r)
			tips = append(tips, geometry.Point{X: p.X, Y: p.Y})
		}
	}

	xs := make([]float64, len(tips))
	for i, p := range tips {
		xs[i] = p.X
	}
	sort.Float64s(xs)

	minGap := box.WidthPX * v.config.MinSpacing
	for i := 1; i < len(xs); i++ {
		if (xs[i]-xs[i-1])*float64(in.Frame.Width) < minGap {
			return false
		}
	}
	return true
}
