package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/ringfit/internal/calibration"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/geometry"
	"github.com/ayusman/ringfit/internal/guidance"
	"github.com/ayusman/ringfit/internal/placement"
	"github.com/ayusman/ringfit/internal/sizing"
	"github.com/ayusman/ringfit/internal/tracking"
)

// GuidanceInterval is how often a frame is scored by the guidance reporter.
const GuidanceInterval = 500 * time.Millisecond

// Overlay is where a ring would be drawn on the current frame.
type Overlay struct {
	Center      geometry.Point `json:"center"`
	RotationDeg float64        `json:"rotation_deg"`
	DiameterPX  float64        `json:"diameter_px"`
	PalmFacing  bool           `json:"palm_facing"`
}

// Update is the live reading of one frame.
type Update struct {
	Seq          uint64             `json:"seq"`
	Timestamp    time.Time          `json:"timestamp"`
	HandDetected bool               `json:"hand_detected"`
	Handedness   string             `json:"handedness,omitempty"`
	Placement    placement.Report   `json:"placement"`
	Landmarks    []geometry.Point   `json:"landmarks,omitempty"`
	Zones        []geometry.Zone    `json:"zones,omitempty"`
	Size         *sizing.RingSize   `json:"size,omitempty"`
	Calibration  calibration.Source `json:"calibration,omitempty"`
	Coverage     float64            `json:"coverage"`
	Overlay      *Overlay           `json:"overlay,omitempty"`
	Guidance     *guidance.Guidance `json:"guidance,omitempty"`
}

// Session turns a stream of detections into live updates. It owns the
// filter state for one continuous tracking run and must not be shared
// between goroutines.
type Session struct {
	bank      *tracking.Bank
	rotation  geometry.RotationSmoother
	validator *placement.Validator
	reporter  *guidance.Reporter

	seq            uint64
	guidance       *guidance.Guidance
	guidanceAt     time.Time
	cardMMPerPX    float64
	ringDiameterMM float64
}

// NewSession creates a session with default thresholds.
func NewSession() *Session {
	return &Session{
		bank:      tracking.NewBank(),
		validator: placement.NewValidator(placement.DefaultConfig()),
		reporter:  guidance.NewReporter(guidance.DefaultConfig()),
	}
}

// SetRingDiameter sets the ring drawn by the overlay. Zero draws the
// measured finger width instead.
func (s *Session) SetRingDiameter(mm float64) {
	s.ringDiameterMM = mm
}

// Reset drops all tracking state. The next hand starts fresh filters.
func (s *Session) Reset() {
	s.bank.Reset()
	s.rotation.Reset()
	s.guidance = nil
	s.guidanceAt = time.Time{}
	s.cardMMPerPX = 0
}

// Process folds one frame's detections into the session. frame may be nil,
// in which case guidance is not refreshed.
func (s *Session) Process(frame *gocv.Mat, size geometry.Frame, hands []detector.HandLandmarks, now time.Time) Update {
	s.seq++
	s.refreshGuidance(frame, now)

	u := Update{Seq: s.seq, Timestamp: now, Guidance: s.guidance}

	hand, err := detector.FirstHand(hands)
	if err != nil {
		// A new hand must not inherit filter state from the last one.
		s.bank.Reset()
		s.rotation.Reset()
		u.Placement = s.validator.NoHand()
		return u
	}

	s.bank.Push(hand)
	avg := s.bank.Average()
	stillness := s.bank.Stillness(hand)
	filtered := s.bank.FilterHand(avg, allRoles...)

	tips := make([]geometry.Point, 0, len(detector.Fingertips))
	for _, r := range detector.Fingertips {
		p := filtered.At(r)
		tips = append(tips, geometry.Point{X: p.X, Y: p.Y})
	}

	u.HandDetected = true
	u.Handedness = string(hand.Handedness)
	u.Placement = s.validator.Evaluate(placement.Input{
		Hand:      avg,
		Tips:      tips,
		Frame:     size,
		Stillness: stillness,
	})
	u.Landmarks = make([]geometry.Point, detector.NumLandmarks)
	for i, p := range filtered.Points {
		u.Landmarks[i] = geometry.Point{X: p.X, Y: p.Y}
	}
	u.Coverage = geometry.Coverage(filtered, size)

	est, source, ok := s.estimate(filtered, size)
	if !ok {
		return u
	}
	u.Calibration = source
	u.Zones = est.Zones
	if rs, ok := sizing.DiameterToSize(est.FingerWidthMM); ok {
		u.Size = &rs
	}

	diameter := s.ringDiameterMM
	if diameter <= 0 {
		diameter = est.FingerWidthMM
	}
	diameterPX := geometry.RingDiameterPX(diameter, est.PalmWidthPX)
	if source == calibration.SourceReference {
		diameterPX = diameter / est.MMPerPX
	}
	u.Overlay = &Overlay{
		Center:      geometry.RingCenter(filtered),
		RotationDeg: s.rotation.Smooth(est.RotationDeg),
		DiameterPX:  diameterPX,
		PalmFacing:  geometry.PalmFacing(filtered),
	}
	return u
}

// estimate measures with the card scale when guidance has seen a card and
// with the palm prior otherwise.
func (s *Session) estimate(h detector.HandLandmarks, size geometry.Frame) (geometry.Estimate, calibration.Source, bool) {
	if s.cardMMPerPX > 0 {
		return geometry.Measure(h, size, s.cardMMPerPX), calibration.SourceReference, true
	}
	cal, err := calibration.PalmPrior(geometry.PalmWidthPX(h, size))
	if err != nil {
		return geometry.Estimate{}, "", false
	}
	return geometry.Measure(h, size, cal.MMPerPX), cal.Source, true
}

func (s *Session) refreshGuidance(frame *gocv.Mat, now time.Time) {
	if frame == nil || (!s.guidanceAt.IsZero() && now.Sub(s.guidanceAt) < GuidanceInterval) {
		return
	}
	g := s.reporter.Analyze(*frame)
	s.guidance = &g
	s.guidanceAt = now

	s.cardMMPerPX = 0
	if g.ObjectBox != nil {
		if ratio, ok := calibration.CardRatio(float64(g.ObjectBox.Dx())); ok {
			s.cardMMPerPX = ratio
		}
	}
}

var allRoles = func() []detector.Role {
	roles := make([]detector.Role, detector.NumLandmarks)
	for i := range roles {
		roles[i] = detector.Role(i)
	}
	return roles
}()
