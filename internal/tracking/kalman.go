// Package tracking stabilises noisy per-frame hand landmarks.
package tracking

// KalmanConfig holds the noise parameters of a Kalman2D filter.
type KalmanConfig struct {
	// ProcessNoise (q) is added to each variance on Predict.
	ProcessNoise float64
	// MeasurementNoise (r) is the variance of an observation.
	MeasurementNoise float64
	// InitialError is the variance before the first observation.
	InitialError float64
}

// DefaultKalmanConfig returns q=1e-3, r=1e-2 and unit initial variance.
func DefaultKalmanConfig() KalmanConfig {
	return KalmanConfig{
		ProcessNoise:     1e-3,
		MeasurementNoise: 1e-2,
		InitialError:     1,
	}
}

// Kalman2D tracks a point with two independent constant-position channels.
// The covariance is kept diagonal.
type Kalman2D struct {
	config KalmanConfig
	x, y   float64
	px, py float64
	seeded bool
}

// NewKalman2D creates a filter with the given configuration.
func NewKalman2D(config KalmanConfig) *Kalman2D {
	k := &Kalman2D{config: config}
	k.Reset()
	return k
}

// Reset discards the estimate and restores the initial variance.
func (k *Kalman2D) Reset() {
	k.x, k.y = 0, 0
	k.px, k.py = k.config.InitialError, k.config.InitialError
	k.seeded = false
}

// Predict grows both variances by the process noise and returns the current
// estimate.
func (k *Kalman2D) Predict() (float64, float64) {
	k.px += k.config.ProcessNoise
	k.py += k.config.ProcessNoise
	return k.x, k.y
}

// Update folds in an observation. The first observation after a reset seeds
// the estimate directly with variance r.
func (k *Kalman2D) Update(zx, zy float64) (float64, float64) {
	r := k.config.MeasurementNoise
	if !k.seeded {
		k.x, k.y = zx, zy
		k.px, k.py = r, r
		k.seeded = true
		return k.x, k.y
	}

	gx := k.px / (k.px + r)
	gy := k.py / (k.py + r)

	k.x += gx * (zx - k.x)
	k.y += gy * (zy - k.y)

	k.px *= 1 - gx
	k.py *= 1 - gy
	return k.x, k.y
}

// Variance returns the current per-channel error variance.
func (k *Kalman2D) Variance() (float64, float64) {
	return k.px, k.py
}
