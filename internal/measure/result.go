// Package measure runs a ring size measurement through cloud analysis,
// on-device landmarks and a static default, in that order.
package measure

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/ringfit/internal/geometry"
	"github.com/ayusman/ringfit/internal/sizing"
)

// Method is how the finger was scaled.
type Method string

const (
	MethodReference Method = "reference_object"
	MethodFallback  Method = "no_reference_fallback"
)

// Stage is the pipeline stage that produced a result.
type Stage string

const (
	StageCloud     Stage = "cloud"
	StageLandmarks Stage = "landmarks"
	StageStatic    Stage = "static"
	// StageDirect is a diameter supplied by the user, e.g. measured from an
	// existing ring.
	StageDirect Stage = "direct"
)

// State is what the orchestrator is doing right now.
type State string

const (
	StateIdle      State = "idle"
	StateCloud     State = "cloud_attempt"
	StateLandmarks State = "landmarks_attempt"
	StateStatic    State = "static_fallback"
)

// Capture is an encoded still image to measure.
type Capture struct {
	Image    []byte
	MIMEType string
}

// Debug holds intermediate values behind a result.
type Debug struct {
	Calibration   string   `json:"calibration,omitempty"`
	Tier          string   `json:"tier,omitempty"`
	MMPerPX       float64  `json:"mm_per_px,omitempty"`
	FingerWidthPX float64  `json:"finger_width_px"`
	ReferenceType string   `json:"reference_type,omitempty"`
	AnalysisNotes string   `json:"analysis_notes,omitempty"`
	Handedness    string   `json:"handedness,omitempty"`
	Complexity    int      `json:"complexity,omitempty"`
	RotationDeg   float64  `json:"rotation_deg,omitempty"`
	TiltFactor    float64  `json:"tilt_factor,omitempty"`
	TiltClamped   bool     `json:"tilt_clamped,omitempty"`
	PalmWidthPX   float64  `json:"palm_width_px,omitempty"`
	Coverage      float64  `json:"coverage,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Result is a completed measurement. It is not modified after Measure
// returns it.
type Result struct {
	ID                    uuid.UUID       `json:"id"`
	RingSize              sizing.RingSize `json:"ring_size"`
	Confidence            int             `json:"confidence"`
	Method                Method          `json:"method"`
	Stage                 Stage           `json:"stage"`
	FingerDiameterMM      float64         `json:"finger_diameter_mm"`
	FingerCircumferenceMM float64         `json:"finger_circumference_mm"`
	Zones                 []geometry.Zone `json:"zones,omitempty"`
	Debug                 Debug           `json:"debug"`
	Notes                 []string        `json:"notes,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	DurationMS            int64           `json:"duration_ms"`
}
