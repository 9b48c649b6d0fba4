// Package detector defines the hand landmark model and the detector boundary.
package detector

import (
	"encoding/json"
	"math"
)

// Role names a landmark by its position in the MediaPipe hand model.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Role int

const (
	Wrist Role = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumLandmarks is the number of points in a hand pose.
const NumLandmarks = 21

var roleNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

func (r Role) String() string {
	if r < 0 || int(r) >= NumLandmarks {
		return "unknown"
	}
	return roleNames[r]
}

// Fingertips lists the five tip landmarks, thumb first.
var Fingertips = [5]Role{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// PalmPolygon outlines the palm: wrist and the four finger bases.
var PalmPolygon = [5]Role{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// Handedness is the detector's left/right classification.
type Handedness string

const (
	Left    Handedness = "Left"
	Right   Handedness = "Right"
	Unknown Handedness = "Unknown"
)

// ParseHandedness maps a detector label onto a Handedness.
func ParseHandedness(s string) Handedness {
	switch s {
	case "Left", "left":
		return Left
	case "Right", "right":
		return Right
	default:
		return Unknown
	}
}

// Point3D is a landmark in normalized image coordinates. Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand pose.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness Handedness            `json:"handedness"`
	Score      float64               `json:"score"`
}

// At returns the landmark for a role.
func (h *HandLandmarks) At(r Role) Point3D {
	return h.Points[r]
}

// Set stores the landmark for a role.
func (h *HandLandmarks) Set(r Role, p Point3D) {
	h.Points[r] = p
}

// Valid reports whether every coordinate is finite.
func (h *HandLandmarks) Valid() bool {
	for _, p := range h.Points {
		for _, v := range [3]float64{p.X, p.Y, p.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// PixelDistance returns the 2D distance between two landmarks in a frame of
// the given pixel size.
func (h *HandLandmarks) PixelDistance(a, b Role, width, height int) float64 {
	pa, pb := h.Points[a], h.Points[b]
	dx := (pa.X - pb.X) * float64(width)
	dy := (pa.Y - pb.Y) * float64(height)
	return math.Hypot(dx, dy)
}

// UnmarshalJSON decodes the MediaPipe service layout and rejects hands that
// do not carry exactly NumLandmarks points.
func (h *HandLandmarks) UnmarshalJSON(data []byte) error {
	var raw jsonHand
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lm, err := raw.toHandLandmarks()
	if err != nil {
		return err
	}
	*h = lm
	return nil
}
