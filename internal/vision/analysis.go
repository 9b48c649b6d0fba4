// Package vision asks a multimodal model to measure a ring finger in a
// photo and validates what comes back.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// Request is an image to analyze.
type Request struct {
	Image    []byte
	MIMEType string
}

// Reference is a known-size object the model found in the image.
type Reference struct {
	Type            string  `json:"type"`
	KnownWidthMM    float64 `json:"known_width_mm"`
	MeasuredWidthPX float64 `json:"measured_width_px"`
}

// Finger is the model's reading of the ring finger. EstimatedWidthMM is zero
// when a reference object was used.
type Finger struct {
	MeasuredWidthPX  float64 `json:"measured_width_px"`
	EstimatedWidthMM float64 `json:"estimated_width_mm,omitempty"`
}

// Analysis is a validated model response. Only possible measurements are
// returned as an Analysis; the rest become errors.
type Analysis struct {
	Reference *Reference `json:"reference,omitempty"`
	Finger    Finger     `json:"finger"`
	Notes     string     `json:"notes,omitempty"`
	// Warnings lists parts of the response that were discarded.
	Warnings []string `json:"warnings,omitempty"`
}

// Analyzer measures a finger in an image.
type Analyzer interface {
	// Available returns nil when Analyze may be called.
	Available() error
	Analyze(ctx context.Context, req Request) (Analysis, error)
}

type rawReference struct {
	Type            string   `json:"type"`
	KnownWidthMM    *float64 `json:"knownWidthMM"`
	MeasuredWidthPX *float64 `json:"measuredWidthPX"`
}

type rawFinger struct {
	MeasuredWidthPX  *float64 `json:"measuredWidthPX"`
	EstimatedWidthMM *float64 `json:"estimatedWidthMM"`
}

type rawAnalysis struct {
	IsMeasurementPossible *bool         `json:"isMeasurementPossible"`
	ReferenceObject       *rawReference `json:"referenceObject"`
	Finger                *rawFinger    `json:"finger"`
	AnalysisNotes         *string       `json:"analysisNotes"`
}

// ParseAnalysis validates a model response body.
//
// A response must say whether measurement is possible. When it is not, the
// notes are required and a *NotPossibleError is returned. A finger with a
// pixel width is required. A reference object and a direct estimate are
// mutually exclusive; if both are sent the estimate is dropped.
func ParseAnalysis(data []byte) (Analysis, error) {
	data = stripFence(data)

	var raw rawAnalysis
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return Analysis{}, malformed("decode: %v", err)
	}

	if raw.IsMeasurementPossible == nil {
		return Analysis{}, malformed("missing isMeasurementPossible")
	}

	notes := ""
	if raw.AnalysisNotes != nil {
		notes = strings.TrimSpace(*raw.AnalysisNotes)
	}

	if !*raw.IsMeasurementPossible {
		if notes == "" {
			return Analysis{}, malformed("measurement not possible without analysisNotes")
		}
		return Analysis{}, &NotPossibleError{Notes: notes}
	}

	if raw.Finger == nil || raw.Finger.MeasuredWidthPX == nil {
		return Analysis{}, malformed("missing finger.measuredWidthPX")
	}

	a := Analysis{
		Finger: Finger{MeasuredWidthPX: *raw.Finger.MeasuredWidthPX},
		Notes:  notes,
	}

	if ref := raw.ReferenceObject; ref != nil {
		if ref.KnownWidthMM != nil && ref.MeasuredWidthPX != nil {
			a.Reference = &Reference{
				Type:            ref.Type,
				KnownWidthMM:    *ref.KnownWidthMM,
				MeasuredWidthPX: *ref.MeasuredWidthPX,
			}
		} else {
			a.Warnings = append(a.Warnings, "incomplete referenceObject ignored")
		}
	}

	if est := raw.Finger.EstimatedWidthMM; est != nil {
		if a.Reference != nil {
			a.Warnings = append(a.Warnings, "estimatedWidthMM ignored in favour of referenceObject")
		} else {
			a.Finger.EstimatedWidthMM = *est
		}
	}

	return a, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = s[3:]
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	return bytes.TrimSpace(s)
}
