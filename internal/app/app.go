// Package app runs the live camera loop: it reads frames, detects the hand,
// folds detections into a tracking Session and fans updates out to
// subscribers.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/geometry"
)

// Loop timing.
const (
	// IdleFPS is the camera rate while live guidance is off.
	IdleFPS = 2
	// ActiveFPS is the camera rate while live guidance is on.
	ActiveFPS = 15
	// LiveDetectTimeout bounds one detection in the live loop.
	LiveDetectTimeout = 250 * time.Millisecond
	// subscriberBuffer is the per-subscriber queue length. Slow subscribers
	// miss updates rather than stall the loop.
	subscriberBuffer = 4
)

// Config holds the collaborators of the live loop.
type Config struct {
	Camera        capture.Camera
	Detector      detector.Detector
	Logger        *zap.Logger
	DetectTimeout time.Duration
}

// App owns the camera loop and the live tracking session.
type App struct {
	config  Config
	logger  *zap.Logger
	session *Session

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    *Update
	jpeg    []byte
	jpegSeq uint64

	subMu  sync.Mutex
	subs   map[int]chan Update
	nextID int
}

// New creates an App. A nil camera is replaced by device 0.
func New(config Config) *App {
	if config.Camera == nil {
		config.Camera = capture.NewCamera(0)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.DetectTimeout <= 0 {
		config.DetectTimeout = LiveDetectTimeout
	}
	return &App{
		config:  config,
		logger:  config.Logger.With(zap.String("component", "live")),
		session: NewSession(),
		subs:    make(map[int]chan Update),
	}
}

// SetEnabled turns live detection on or off. Turning it off resets the
// tracking session.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled == enabled {
		return
	}
	a.enabled = enabled
	if enabled {
		a.config.Camera.SetFPS(ActiveFPS)
	} else {
		a.config.Camera.SetFPS(IdleFPS)
		a.session.Reset()
	}
}

// IsEnabled reports whether live detection is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetRingDiameter sets the ring size drawn by the live overlay.
func (a *App) SetRingDiameter(mm float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.SetRingDiameter(mm)
}

// Camera returns the camera read by the loop.
func (a *App) Camera() capture.Camera {
	return a.config.Camera
}

// Last returns the most recent update.
func (a *App) Last() (Update, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return Update{}, false
	}
	return *a.last, true
}

// LatestJPEG returns the most recent camera frame and its sequence number.
// The sequence is zero until a frame has been read.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg, a.jpegSeq
}

// Subscribe registers for live updates. The returned function unsubscribes
// and closes the channel.
func (a *App) Subscribe() (<-chan Update, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextID
	a.nextID++
	ch := make(chan Update, subscriberBuffer)
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
			close(ch)
		})
	}
}

func (a *App) publish(u Update) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// ProcessFrame runs detection on frame, updates the session and publishes
// the result. It does not take ownership of frame.
func (a *App) ProcessFrame(ctx context.Context, frame *gocv.Mat) Update {
	size := geometry.Frame{Width: frame.Cols(), Height: frame.Rows()}

	var hands []detector.HandLandmarks
	if a.config.Detector != nil {
		var err error
		hands, err = detector.DetectTimeout(ctx, a.config.Detector, frame, a.config.DetectTimeout)
		if err != nil {
			a.logger.Debug("live detection failed", zap.Error(err))
		}
	}

	a.mu.Lock()
	u := a.session.Process(frame, size, hands, time.Now())
	a.last = &u
	a.mu.Unlock()

	a.publish(u)
	return u
}

// Start opens the camera and starts the loop. Starting twice is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	if a.enabled {
		a.config.Camera.SetFPS(ActiveFPS)
	} else {
		a.config.Camera.SetFPS(IdleFPS)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(a.stopCh, a.doneCh)

	a.logger.Info("live loop started")
	return nil
}

// Stop halts the loop, closes the camera and resets the session.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("failed to close camera", zap.Error(err))
	}

	a.mu.Lock()
	a.session.Reset()
	a.mu.Unlock()

	a.logger.Info("live loop stopped")
}
