package measure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBusy wraps the context error of a caller that gave up waiting for
	// another measurement to finish.
	ErrBusy = errors.New("measurement already in progress")

	// ErrExhausted is matched by *ExhaustedError.
	ErrExhausted = errors.New("all measurement stages failed")

	// ErrInvalidDiameter is returned by MeasureDiameter for a diameter that
	// maps to no ring size.
	ErrInvalidDiameter = errors.New("diameter outside supported ring sizes")
)

// ExhaustedMessage is shown to the user when no stage produced a size.
const ExhaustedMessage = "Could not determine your ring size. Retake the photo in good light with a card beside your finger."

// ExhaustedError is returned when every stage failed, including the static
// default.
type ExhaustedError struct {
	// Message is safe to show to the user.
	Message string
	// Notes lists why each stage failed.
	Notes []string
}

func (e *ExhaustedError) Error() string {
	if len(e.Notes) == 0 {
		return ErrExhausted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrExhausted, strings.Join(e.Notes, "; "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func outOfRangeNote(widthMM float64) string {
	return fmt.Sprintf("Calculated finger size (%.1f mm) is outside the standard range. Please retake the photo.", widthMM)
}
