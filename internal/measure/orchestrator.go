package measure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/ringfit/internal/calibration"
	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/geometry"
	"github.com/ayusman/ringfit/internal/sizing"
	"github.com/ayusman/ringfit/internal/telemetry"
	"github.com/ayusman/ringfit/internal/vision"
)

// Defaults for Options.
const (
	DefaultFallbackDiameterMM = 18.1
	DefaultDetectTimeout      = 2500 * time.Millisecond
)

// DefaultComplexities are the landmark model complexities tried in order.
var DefaultComplexities = []int{2, 1}

// Telemetry event names.
const (
	EventCloudSuccess    = "measure.cloud_success"
	EventLandmarkSuccess = "measure.landmark_success"
	EventFallbackSuccess = "measure.fallback_success"
	EventTotalFailure    = "measure.total_failure"
)

// Confidences not owned by calibration.
const (
	staticSkippedConfidence = 30
	staticFailedConfidence  = 25
	tiltClampedConfidence   = 75
	directConfidence        = 95
)

// Zone spreads for cloud results.
const (
	referenceZoneConfidence = 92
	referenceZoneErrorMM    = 0.4
	estimateZoneConfidence  = 75
	estimateZoneErrorMM     = 0.6
	directZoneErrorMM       = 0.2
)

// DecodeFunc turns an encoded capture into a BGR frame.
type DecodeFunc func(data []byte) (gocv.Mat, error)

// Options configures an Orchestrator. Nil Vision or Detector skips the
// corresponding stage.
type Options struct {
	Vision    vision.Analyzer
	Detector  detector.Detector
	Decode    DecodeFunc
	History   History
	Telemetry telemetry.Recorder
	Logger    *zap.Logger

	FallbackDiameterMM float64
	DetectTimeout      time.Duration
	Complexities       []int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs at most one measurement at a time.
type Orchestrator struct {
	opts   Options
	logger *zap.Logger

	// sem holds a token while a measurement is in flight.
	sem chan struct{}

	mu    sync.RWMutex
	state State
	last  *Result
}

// New creates an Orchestrator, filling unset options with defaults.
func New(opts Options) *Orchestrator {
	if opts.Decode == nil {
		opts.Decode = capture.DecodeMat
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FallbackDiameterMM <= 0 {
		opts.FallbackDiameterMM = DefaultFallbackDiameterMM
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if len(opts.Complexities) == 0 {
		opts.Complexities = DefaultComplexities
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "measure")),
		sem:    make(chan struct{}, 1),
		state:  StateIdle,
	}
}

// State reports the stage currently running.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Last returns the most recent result, if any.
func (o *Orchestrator) Last() (Result, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) acquire(ctx context.Context) error {
	select {
	case o.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrBusy, ctx.Err())
	}
}

func (o *Orchestrator) release() {
	o.setState(StateIdle)
	<-o.sem
}

// attempt carries the notes and stage outcomes of one Measure call.
type attempt struct {
	notes        []string
	cloudSkipped bool
}

func (a *attempt) note(format string, args ...any) {
	a.notes = append(a.notes, fmt.Sprintf(format, args...))
}

// Measure estimates a ring size from a still image. Recoverable failures in
// a stage move on to the next one and are listed in Result.Notes. The only
// errors returned are a *ExhaustedError, or a context error when ctx ends
// first.
func (o *Orchestrator) Measure(ctx context.Context, c Capture) (Result, error) {
	if err := o.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer o.release()

	start := o.opts.Now()
	if c.MIMEType == "" {
		if info, err := capture.Inspect(c.Image); err == nil {
			c.MIMEType = info.MIMEType
		}
	}

	var a attempt

	o.setState(StateCloud)
	if res, ok := o.cloud(ctx, c, &a); ok {
		return o.finish(res, &a, start, EventCloudSuccess), nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	o.setState(StateLandmarks)
	if res, ok := o.landmarks(ctx, c, &a); ok {
		return o.finish(res, &a, start, EventLandmarkSuccess), nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	o.setState(StateStatic)
	res, err := o.static(&a)
	if err != nil {
		o.opts.Telemetry.Record(EventTotalFailure, o.opts.Now().Sub(start))
		o.logger.Error("measurement exhausted", zap.Strings("notes", a.notes))
		return Result{}, err
	}
	return o.finish(res, &a, start, EventFallbackSuccess), nil
}

// MeasureDiameter sizes a diameter measured directly, for example from a
// ring that already fits.
func (o *Orchestrator) MeasureDiameter(ctx context.Context, diameterMM float64) (Result, error) {
	if err := o.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer o.release()

	start := o.opts.Now()
	size, ok := sizing.DiameterToSize(diameterMM)
	if !ok {
		return Result{}, fmt.Errorf("%.2f mm: %w", diameterMM, ErrInvalidDiameter)
	}

	res := Result{
		RingSize:              size,
		Confidence:            directConfidence,
		Method:                MethodReference,
		Stage:                 StageDirect,
		FingerDiameterMM:      diameterMM,
		FingerCircumferenceMM: diameterMM * math.Pi,
		Zones:                 geometry.SpreadZones(diameterMM, directConfidence, directZoneErrorMM),
		Debug:                 Debug{Calibration: "direct"},
	}
	return o.finish(res, &attempt{}, start, ""), nil
}

func (o *Orchestrator) finish(res Result, a *attempt, start time.Time, event string) Result {
	now := o.opts.Now()
	res.ID = uuid.New()
	res.CreatedAt = now
	res.DurationMS = now.Sub(start).Milliseconds()
	res.Notes = append(res.Notes, a.notes...)

	if event != "" {
		o.opts.Telemetry.Record(event, now.Sub(start))
	}

	if o.opts.History != nil {
		if err := o.opts.History.Save(res); err != nil {
			o.logger.Warn("failed to save measurement", zap.String("id", res.ID.String()), zap.Error(err))
		}
	}

	o.mu.Lock()
	o.last = &res
	o.mu.Unlock()

	o.logger.Info("measurement complete",
		zap.String("id", res.ID.String()),
		zap.String("stage", string(res.Stage)),
		zap.String("size", res.RingSize.Label()),
		zap.Int("confidence", res.Confidence),
		zap.Int64("duration_ms", res.DurationMS),
	)
	return res
}

func (o *Orchestrator) cloud(ctx context.Context, c Capture, a *attempt) (Result, bool) {
	if o.opts.Vision == nil {
		a.cloudSkipped = true
		a.note("cloud analysis skipped: %v", vision.ErrUnavailable)
		return Result{}, false
	}
	if err := o.opts.Vision.Available(); err != nil {
		a.cloudSkipped = true
		a.note("cloud analysis skipped: %v", err)
		o.logger.Debug("cloud analysis unavailable", zap.Error(err))
		return Result{}, false
	}

	analysis, err := o.opts.Vision.Analyze(ctx, vision.Request{Image: c.Image, MIMEType: c.MIMEType})
	if err != nil {
		var np *vision.NotPossibleError
		if errors.As(err, &np) {
			a.note("cloud analysis: %s", np.Notes)
		} else {
			a.note("cloud analysis failed: %v", err)
		}
		o.logger.Warn("cloud analysis failed, trying landmarks", zap.Error(err))
		return Result{}, false
	}

	in := calibration.Input{
		FingerWidthPX:    analysis.Finger.MeasuredWidthPX,
		EstimatedWidthMM: analysis.Finger.EstimatedWidthMM,
	}
	if ref := analysis.Reference; ref != nil {
		in.Reference = &calibration.Reference{
			Type:       ref.Type,
			KnownMM:    ref.KnownWidthMM,
			MeasuredPX: ref.MeasuredWidthPX,
		}
	}

	cal, err := calibration.Resolve(in)
	if err != nil {
		a.note("cloud analysis: %v", err)
		o.logger.Warn("cloud calibration failed, trying landmarks", zap.Error(err))
		return Result{}, false
	}

	width := cal.FingerWidthMM
	size, ok := sizing.DiameterToSize(width)
	if !ok {
		a.note("%s", outOfRangeNote(width))
		o.logger.Warn("cloud size out of range, trying landmarks", zap.Float64("width_mm", width))
		return Result{}, false
	}

	method := MethodFallback
	zones := geometry.SpreadZones(width, estimateZoneConfidence, estimateZoneErrorMM)
	if cal.Source == calibration.SourceReference {
		method = MethodReference
		zones = geometry.SpreadZones(width, referenceZoneConfidence, referenceZoneErrorMM)
	}

	debug := Debug{
		Calibration:   string(cal.Source),
		Tier:          cal.Tier.String(),
		MMPerPX:       cal.MMPerPX,
		FingerWidthPX: analysis.Finger.MeasuredWidthPX,
		AnalysisNotes: analysis.Notes,
		Warnings:      analysis.Warnings,
	}
	if in.Reference != nil && method == MethodReference {
		debug.ReferenceType = in.Reference.Type
	}

	return Result{
		RingSize:              size,
		Confidence:            cal.Confidence,
		Method:                method,
		Stage:                 StageCloud,
		FingerDiameterMM:      width,
		FingerCircumferenceMM: width * math.Pi,
		Zones:                 zones,
		Debug:                 debug,
	}, true
}

func (o *Orchestrator) landmarks(ctx context.Context, c Capture, a *attempt) (Result, bool) {
	d := o.opts.Detector
	if d == nil {
		a.note("landmark analysis skipped: no detector")
		return Result{}, false
	}

	mat, err := o.opts.Decode(c.Image)
	if err != nil {
		mat.Close()
		a.note("landmark analysis: decode image: %v", err)
		o.logger.Warn("capture decode failed, using default size", zap.Error(err))
		return Result{}, false
	}
	defer mat.Close()

	frame := geometry.Frame{Width: mat.Cols(), Height: mat.Rows()}

	tunable, _ := d.(detector.Tunable)
	if tunable != nil {
		defer tunable.SetComplexity(tunable.Complexity())
	}

	for _, level := range o.opts.Complexities {
		if tunable != nil {
			tunable.SetComplexity(level)
		}

		res, err := o.detectOnce(ctx, d, &mat, frame)
		if err == nil {
			res.Debug.Complexity = level
			return res, true
		}
		if ctx.Err() != nil {
			return Result{}, false
		}

		a.note("landmark analysis (complexity %d): %v", level, err)
		o.logger.Warn("landmark detection failed, trying next",
			zap.Int("complexity", level),
			zap.Error(err),
		)
	}
	return Result{}, false
}

func (o *Orchestrator) detectOnce(ctx context.Context, d detector.Detector, mat *gocv.Mat, frame geometry.Frame) (Result, error) {
	hands, err := detector.DetectTimeout(ctx, d, mat, o.opts.DetectTimeout)
	if err != nil {
		return Result{}, err
	}
	hand, err := detector.FirstHand(hands)
	if err != nil {
		return Result{}, err
	}

	est, err := geometry.MeasureWithPalm(hand, frame)
	if err != nil {
		return Result{}, err
	}
	cal, err := calibration.PalmPrior(est.PalmWidthPX)
	if err != nil {
		return Result{}, err
	}

	width := est.FingerWidthMM
	size, ok := sizing.DiameterToSize(width)
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", outOfRangeNote(width), sizing.ErrOutOfRange)
	}

	confidence := cal.Confidence
	if est.Tilt.Clamped {
		confidence = tiltClampedConfidence
	}

	return Result{
		RingSize:              size,
		Confidence:            confidence,
		Method:                MethodFallback,
		Stage:                 StageLandmarks,
		FingerDiameterMM:      width,
		FingerCircumferenceMM: width * math.Pi,
		Zones:                 est.Zones,
		Debug: Debug{
			Calibration:   string(cal.Source),
			Tier:          cal.Tier.String(),
			MMPerPX:       cal.MMPerPX,
			FingerWidthPX: est.Segments.MidPX,
			Handedness:    string(hand.Handedness),
			RotationDeg:   est.RotationDeg,
			TiltFactor:    est.Tilt.Factor,
			TiltClamped:   est.Tilt.Clamped,
			PalmWidthPX:   est.PalmWidthPX,
			Coverage:      est.Coverage,
		},
	}, nil
}

func (o *Orchestrator) static(a *attempt) (Result, error) {
	d := o.opts.FallbackDiameterMM
	size, ok := sizing.DiameterToSize(d)
	if !ok {
		a.note("default diameter %.1f mm has no ring size", d)
		return Result{}, &ExhaustedError{Message: ExhaustedMessage, Notes: a.notes}
	}

	confidence := staticFailedConfidence
	if a.cloudSkipped {
		confidence = staticSkippedConfidence
	}

	return Result{
		RingSize:              size,
		Confidence:            confidence,
		Method:                MethodFallback,
		Stage:                 StageStatic,
		FingerDiameterMM:      d,
		FingerCircumferenceMM: d * math.Pi,
	}, nil
}
