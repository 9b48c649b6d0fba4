package tracking

// DefaultAlpha is the weight of a new sample in Smoother.
const DefaultAlpha = 0.4

// Smoother is an exponential moving average over a 2D point.
type Smoother struct {
	alpha  float64
	sx, sy float64
	primed bool
}

// NewSmoother creates a smoother; alpha is the weight given to new samples.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Smooth returns the blended point. The first sample passes through.
func (s *Smoother) Smooth(x, y float64) (float64, float64) {
	if !s.primed {
		s.sx, s.sy = x, y
		s.primed = true
		return x, y
	}
	s.sx = s.alpha*x + (1-s.alpha)*s.sx
	s.sy = s.alpha*y + (1-s.alpha)*s.sy
	return s.sx, s.sy
}

// Reset forgets the running average.
func (s *Smoother) Reset() {
	s.primed = false
	s.sx, s.sy = 0, 0
}
