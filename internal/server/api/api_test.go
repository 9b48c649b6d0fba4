package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/ringfit/internal/measure"
	"github.com/ayusman/ringfit/internal/sizing"
	"github.com/ayusman/ringfit/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// pngBytes returns a small encoded PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// fakeMeasurer records calls and returns canned results.
type fakeMeasurer struct {
	mu       sync.Mutex
	result   measure.Result
	err      error
	captures []measure.Capture
	diameter float64
}

func newFakeMeasurer() *fakeMeasurer {
	size, _ := sizing.ByUS(8)
	return &fakeMeasurer{
		result: measure.Result{
			ID:               uuid.New(),
			RingSize:         size,
			Confidence:       95,
			Method:           measure.MethodReference,
			Stage:            measure.StageCloud,
			FingerDiameterMM: 18.1,
			CreatedAt:        time.Now(),
		},
	}
}

func (f *fakeMeasurer) Measure(ctx context.Context, c measure.Capture) (measure.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, c)
	return f.result, f.err
}

func (f *fakeMeasurer) MeasureDiameter(ctx context.Context, mm float64) (measure.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diameter = mm
	if f.err != nil {
		return measure.Result{}, f.err
	}
	res := f.result
	res.Stage = measure.StageDirect
	res.FingerDiameterMM = mm
	return res, nil
}

