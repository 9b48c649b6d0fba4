package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu           sync.Mutex
	hands        []HandLandmarks
	err          error
	delay        time.Duration
	calls        int
	complexities []int
	complexity   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{complexity: DefaultConfig().ModelComplexity}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes every Detect call sleep before answering.
func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetComplexity records the requested model complexity.
func (m *MockDetector) SetComplexity(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complexity = level
}

// Complexity returns the current model complexity.
func (m *MockDetector) Complexity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.complexity
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complexities returns the model complexity in effect for each Detect call.
func (m *MockDetector) Complexities() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.complexities))
	copy(out, m.complexities)
	return out
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	m.complexities = append(m.complexities, m.complexity)
	hands, err, delay := m.hands, m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a right hand held upright with the palm towards
// the camera and the fingers spread.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: Right, Score: 0.95}

	h.Set(Wrist, Point3D{X: 0.50, Y: 0.75, Z: 0.0})

	h.Set(ThumbCMC, Point3D{X: 0.57, Y: 0.70, Z: -0.01})
	h.Set(ThumbMCP, Point3D{X: 0.62, Y: 0.64, Z: -0.02})
	h.Set(ThumbIP, Point3D{X: 0.66, Y: 0.58, Z: -0.02})
	h.Set(ThumbTip, Point3D{X: 0.69, Y: 0.53, Z: -0.03})

	h.Set(IndexMCP, Point3D{X: 0.58, Y: 0.52, Z: 0.0})
	h.Set(IndexPIP, Point3D{X: 0.60, Y: 0.43, Z: -0.01})
	h.Set(IndexDIP, Point3D{X: 0.61, Y: 0.37, Z: -0.02})
	h.Set(IndexTip, Point3D{X: 0.62, Y: 0.32, Z: -0.03})

	h.Set(MiddleMCP, Point3D{X: 0.52, Y: 0.50, Z: 0.0})
	h.Set(MiddlePIP, Point3D{X: 0.52, Y: 0.40, Z: -0.01})
	h.Set(MiddleDIP, Point3D{X: 0.52, Y: 0.33, Z: -0.02})
	h.Set(MiddleTip, Point3D{X: 0.52, Y: 0.27, Z: -0.03})

	h.Set(RingMCP, Point3D{X: 0.46, Y: 0.51, Z: 0.0})
	h.Set(RingPIP, Point3D{X: 0.45, Y: 0.435, Z: -0.01})
	h.Set(RingDIP, Point3D{X: 0.44, Y: 0.385, Z: -0.02})
	h.Set(RingTip, Point3D{X: 0.43, Y: 0.345, Z: -0.03})

	h.Set(PinkyMCP, Point3D{X: 0.40, Y: 0.54, Z: 0.0})
	h.Set(PinkyPIP, Point3D{X: 0.37, Y: 0.48, Z: -0.01})
	h.Set(PinkyDIP, Point3D{X: 0.35, Y: 0.44, Z: -0.02})
	h.Set(PinkyTip, Point3D{X: 0.33, Y: 0.40, Z: -0.03})

	return h
}

// MeasurableLandmarks returns a flat upright hand for a 640x480 frame whose
// palm spans 128 px and whose ring finger segments are axis aligned:
// MCP→PIP 36 px, PIP→DIP 24 px, DIP→tip 19.2 px.
func MeasurableLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: Left, Score: 0.9}

	h.Set(Wrist, Point3D{X: 0.50, Y: 0.80})

	h.Set(ThumbCMC, Point3D{X: 0.62, Y: 0.74})
	h.Set(ThumbMCP, Point3D{X: 0.67, Y: 0.68})
	h.Set(ThumbIP, Point3D{X: 0.70, Y: 0.62})
	h.Set(ThumbTip, Point3D{X: 0.72, Y: 0.57})

	h.Set(IndexMCP, Point3D{X: 0.60, Y: 0.55})
	h.Set(IndexPIP, Point3D{X: 0.61, Y: 0.47})
	h.Set(IndexDIP, Point3D{X: 0.615, Y: 0.42})
	h.Set(IndexTip, Point3D{X: 0.62, Y: 0.38})

	h.Set(MiddleMCP, Point3D{X: 0.533, Y: 0.53})
	h.Set(MiddlePIP, Point3D{X: 0.533, Y: 0.445})
	h.Set(MiddleDIP, Point3D{X: 0.533, Y: 0.39})
	h.Set(MiddleTip, Point3D{X: 0.533, Y: 0.345})

	h.Set(RingMCP, Point3D{X: 0.467, Y: 0.53})
	h.Set(RingPIP, Point3D{X: 0.467, Y: 0.455})
	h.Set(RingDIP, Point3D{X: 0.467, Y: 0.405})
	h.Set(RingTip, Point3D{X: 0.467, Y: 0.365})

	h.Set(PinkyMCP, Point3D{X: 0.40, Y: 0.55})
	h.Set(PinkyPIP, Point3D{X: 0.39, Y: 0.49})
	h.Set(PinkyDIP, Point3D{X: 0.385, Y: 0.45})
	h.Set(PinkyTip, Point3D{X: 0.38, Y: 0.42})

	return h
}
