package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrTimeout is returned when a detection does not finish in time.
	ErrTimeout = errors.New("hand detection timed out")
	// ErrNoHand is returned when a frame contains no usable hand.
	ErrNoHand = errors.New("no hand detected")

	// ErrIncompleteHand is returned when a hand does not carry exactly
	// NumLandmarks points.
	ErrIncompleteHand = errors.New("hand landmarks incomplete")
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Tunable is implemented by detectors whose model complexity can be changed
// between calls.
type Tunable interface {
	SetComplexity(level int)
	Complexity() int
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the landmark model (0, 1 or 2).
	ModelComplexity int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		ModelComplexity: 1,
	}
}

type detectResult struct {
	hands []HandLandmarks
	err   error
}

// DetectTimeout runs d.Detect on a copy of frame and waits at most timeout
// for it. A result that arrives after the deadline or after ctx is done is
// dropped; the call itself is left to finish in the background.
func DetectTimeout(ctx context.Context, d Detector, frame *gocv.Mat, timeout time.Duration) ([]HandLandmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clone := frame.Clone()
	done := make(chan detectResult, 1)
	go func() {
		defer clone.Close()
		hands, err := d.Detect(&clone)
		done <- detectResult{hands: hands, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.hands, r.err
	case <-timer.C:
		return nil, fmt.Errorf("after %s: %w", timeout, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FirstHand returns the highest scoring valid hand, or ErrNoHand.
func FirstHand(hands []HandLandmarks) (HandLandmarks, error) {
	best := -1
	for i := range hands {
		if !hands[i].Valid() {
			continue
		}
		if best < 0 || hands[i].Score > hands[best].Score {
			best = i
		}
	}
	if best < 0 {
		return HandLandmarks{}, ErrNoHand
	}
	return hands[best], nil
}
