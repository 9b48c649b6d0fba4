package tracking

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/ringfit/internal/detector"
)

const (
	// HistoryFrames is the length of the rolling landmark buffer.
	HistoryFrames = 5
	// SteadyThreshold is the stillness below which a hand counts as steady.
	SteadyThreshold = 0.01
	// HoldSteadyThreshold is the stillness at or above which a "Hold steady"
	// hint is shown.
	HoldSteadyThreshold = 0.0025
)

// Bank holds one Kalman2D and one Smoother per landmark plus a short history
// of raw hand poses. A Bank belongs to a single tracking session and is not
// safe for concurrent use.
type Bank struct {
	kalman  [detector.NumLandmarks]*Kalman2D
	smooth  [detector.NumLandmarks]*Smoother
	history []detector.HandLandmarks
}

// NewBank creates a bank using the default filter parameters.
func NewBank() *Bank {
	return NewBankWithConfig(DefaultKalmanConfig(), DefaultAlpha)
}

// NewBankWithConfig creates a bank with explicit filter parameters.
func NewBankWithConfig(config KalmanConfig, alpha float64) *Bank {
	b := &Bank{history: make([]detector.HandLandmarks, 0, HistoryFrames)}
	for i := range b.kalman {
		b.kalman[i] = NewKalman2D(config)
		b.smooth[i] = NewSmoother(alpha)
	}
	return b
}

// Filter smooths, predicts and updates the filters of one landmark and
// returns the filtered position. Call it at most once per landmark per frame.
func (b *Bank) Filter(role detector.Role, x, y float64) (float64, float64) {
	sx, sy := b.smooth[role].Smooth(x, y)
	k := b.kalman[role]
	k.Predict()
	return k.Update(sx, sy)
}

// FilterHand filters the given roles of h and returns a copy with those
// points replaced. Z is passed through unchanged.
func (b *Bank) FilterHand(h detector.HandLandmarks, roles ...detector.Role) detector.HandLandmarks {
	out := h
	for _, r := range roles {
		p := h.At(r)
		p.X, p.Y = b.Filter(r, p.X, p.Y)
		out.Set(r, p)
	}
	return out
}

// Push appends a raw pose to the rolling buffer, dropping the oldest once
// HistoryFrames are held.
func (b *Bank) Push(h detector.HandLandmarks) {
	if len(b.history) == HistoryFrames {
		copy(b.history, b.history[1:])
		b.history = b.history[:HistoryFrames-1]
	}
	b.history = append(b.history, h)
}

// Frames returns how many poses are buffered.
func (b *Bank) Frames() int {
	return len(b.history)
}

// Average returns the per-point mean of the buffered poses. Handedness and
// score come from the most recent pose. An empty buffer yields a zero pose.
func (b *Bank) Average() detector.HandLandmarks {
	n := len(b.history)
	if n == 0 {
		return detector.HandLandmarks{}
	}

	out := detector.HandLandmarks{
		Handedness: b.history[n-1].Handedness,
		Score:      b.history[n-1].Score,
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i := range out.Points {
		for j, h := range b.history {
			xs[j], ys[j], zs[j] = h.Points[i].X, h.Points[i].Y, h.Points[i].Z
		}
		out.Points[i] = detector.Point3D{
			X: stat.Mean(xs, nil),
			Y: stat.Mean(ys, nil),
			Z: stat.Mean(zs, nil),
		}
	}
	return out
}

// Stillness returns the root mean squared 2D distance between the points of
// h and the buffered average. Zero when nothing is buffered.
func (b *Bank) Stillness(h detector.HandLandmarks) float64 {
	if len(b.history) == 0 {
		return 0
	}
	avg := b.Average()
	var sum float64
	for i := range h.Points {
		dx := h.Points[i].X - avg.Points[i].X
		dy := h.Points[i].Y - avg.Points[i].Y
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / detector.NumLandmarks)
}

// Steady reports whether a stillness value is below SteadyThreshold.
func Steady(stillness float64) bool {
	return stillness < SteadyThreshold
}

// Reset discards all filter state and the history buffer.
func (b *Bank) Reset() {
	for i := range b.kalman {
		b.kalman[i].Reset()
		b.smooth[i].Reset()
	}
	b.history = b.history[:0]
}
