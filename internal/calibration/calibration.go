// Package calibration turns measurement inputs into a pixel to millimetre
// scale with a provenance and trust tier.
package calibration

import (
	"errors"
	"math"

	"github.com/ayusman/ringfit/internal/geometry"
)

// CreditCardWidthMM is the long side of an ISO/IEC 7810 ID-1 card.
const CreditCardWidthMM = 85.6

// ErrInsufficientInput is returned when neither a reference object nor an
// estimated width is usable.
var ErrInsufficientInput = errors.New("insufficient input for calibration")

// Source records where a scale came from.
type Source string

const (
	SourceReference  Source = "reference_object"
	SourcePalmPrior  Source = "palm_prior"
	SourceAIEstimate Source = "ai_estimate"
)

// Tier ranks sources by trust. Higher is more trusted.
type Tier int

const (
	TierLowerMedium Tier = iota + 1
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLowerMedium:
		return "lower_medium"
	default:
		return "unknown"
	}
}

// Base confidences per source.
const (
	ReferenceConfidence = 95
	EstimateConfidence  = 70
	PalmPriorConfidence = 80
)

// Reference is a known-size object seen in the image.
type Reference struct {
	Type       string  `json:"type"`
	KnownMM    float64 `json:"known_width_mm"`
	MeasuredPX float64 `json:"measured_width_px"`
}

// Input is what a measurement attempt knows about scale.
type Input struct {
	Reference *Reference
	// FingerWidthPX is the measured finger width, used with a reference.
	FingerWidthPX float64
	// EstimatedWidthMM is a direct finger width estimate in millimetres.
	EstimatedWidthMM float64
}

// Calibration is a resolved scale. MMPerPX is zero for direct estimates.
type Calibration struct {
	Source        Source  `json:"source"`
	Tier          Tier    `json:"tier"`
	MMPerPX       float64 `json:"mm_per_px"`
	Confidence    int     `json:"confidence"`
	FingerWidthMM float64 `json:"finger_width_mm"`
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Resolve picks the most trusted usable source: a reference object with both
// widths positive, then a direct estimate.
func Resolve(in Input) (Calibration, error) {
	if ref := in.Reference; ref != nil && positive(ref.KnownMM) && positive(ref.MeasuredPX) {
		ratio := ref.KnownMM / ref.MeasuredPX
		return Calibration{
			Source:        SourceReference,
			Tier:          TierHigh,
			MMPerPX:       ratio,
			Confidence:    ReferenceConfidence,
			FingerWidthMM: in.FingerWidthPX * ratio,
		}, nil
	}

	if positive(in.EstimatedWidthMM) {
		return Calibration{
			Source:        SourceAIEstimate,
			Tier:          TierMedium,
			Confidence:    EstimateConfidence,
			FingerWidthMM: in.EstimatedWidthMM,
		}, nil
	}

	return Calibration{}, ErrInsufficientInput
}

// PalmPrior calibrates from the palm width in pixels.
func PalmPrior(palmPX float64) (Calibration, error) {
	ratio, err := geometry.PalmPriorRatio(palmPX)
	if err != nil {
		return Calibration{}, err
	}
	return Calibration{
		Source:     SourcePalmPrior,
		Tier:       TierLowerMedium,
		MMPerPX:    ratio,
		Confidence: PalmPriorConfidence,
	}, nil
}

// CardRatio returns millimetres per pixel for a credit card whose long side
// spans widthPX.
func CardRatio(widthPX float64) (float64, bool) {
	if !positive(widthPX) {
		return 0, false
	}
	return CreditCardWidthMM / widthPX, true
}
