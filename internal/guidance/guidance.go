// Package guidance scores live preview frames for lighting, sharpness and
// whether a finger and a reference card are in view. Its output is advisory
// and never gates a measurement.
package guidance

import (
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Lighting classifies average luminance.
type Lighting string

const (
	LightingDark   Lighting = "dark"
	LightingGood   Lighting = "good"
	LightingBright Lighting = "bright"
)

// Quality classifies sharpness.
type Quality string

const (
	QualityGood   Quality = "good"
	QualityBlurry Quality = "blurry"
)

// Distance classifies how large the reference card appears.
type Distance string

const (
	DistanceGood     Distance = "good"
	DistanceTooFar   Distance = "too_far"
	DistanceTooClose Distance = "too_close"
)

// Status messages, highest priority first.
const (
	MessageDark     = "More lighting needed"
	MessageBright   = "Too bright, find some shade"
	MessageNoFinger = "Position ring finger in frame"
	MessageNoObject = "Place a reference object"
	MessageReady    = "Perfect! Tap to capture"
)

// Config holds the analysis thresholds.
type Config struct {
	AnalysisWidth int
	DarkBelow     float64
	BrightAbove   float64
	// SkinRatio is the fraction of pixels in the skin range needed to
	// report a finger.
	SkinRatio float64
	// ObjectThreshold binarizes the gray image before contour search.
	ObjectThreshold float32
	MinContour      int
	MinAspect       float64
	MaxAspect       float64
	// BlurVariance is the Laplacian variance below which a frame is blurry.
	BlurVariance float64
	// Card width as a fraction of frame width.
	MinCardWidth float64
	MaxCardWidth float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AnalysisWidth:   320,
		DarkBelow:       50,
		BrightAbove:     200,
		SkinRatio:       0.10,
		ObjectThreshold: 80,
		MinContour:      50,
		MinAspect:       1.3,
		MaxAspect:       1.9,
		BlurVariance:    20,
		MinCardWidth:    0.15,
		MaxCardWidth:    0.60,
	}
}

// HSV bounds for skin, in OpenCV units (H 0-180).
var (
	skinLower = gocv.NewScalar(0, 40, 60, 0)
	skinUpper = gocv.NewScalar(25, 255, 255, 0)
)

// Guidance is the advisory reading of one frame.
type Guidance struct {
	Lighting       Lighting         `json:"lighting"`
	Quality        Quality          `json:"quality"`
	ObjectDetected bool             `json:"object_detected"`
	FingerDetected bool             `json:"finger_detected"`
	Distance       Distance         `json:"distance"`
	Message        string           `json:"message"`
	ObjectBox      *image.Rectangle `json:"object_box,omitempty"`
	Luminance      float64          `json:"luminance"`
	SkinRatio      float64          `json:"skin_ratio"`
}

// Reporter analyzes frames. It holds no per-frame state.
type Reporter struct {
	cfg Config
}

// NewReporter creates a Reporter.
func NewReporter(cfg Config) *Reporter {
	if cfg.AnalysisWidth <= 0 {
		cfg.AnalysisWidth = DefaultConfig().AnalysisWidth
	}
	return &Reporter{cfg: cfg}
}

// Analyze scores a BGR frame. An empty frame reads as dark with nothing
// detected.
func Analyze(frame gocv.Mat) Guidance {
	return NewReporter(DefaultConfig()).Analyze(frame)
}

// Analyze scores a BGR frame.
func (r *Reporter) Analyze(frame gocv.Mat) Guidance {
	if frame.Empty() || frame.Cols() == 0 || frame.Rows() == 0 {
		g := Guidance{Lighting: LightingDark, Quality: QualityBlurry, Distance: DistanceGood}
		g.Message = message(g)
		return g
	}

	small := r.downscale(frame)
	defer small.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)

	g := Guidance{Distance: DistanceGood}
	g.Luminance = gray.Mean().Val1
	switch {
	case g.Luminance < r.cfg.DarkBelow:
		g.Lighting = LightingDark
	case g.Luminance > r.cfg.BrightAbove:
		g.Lighting = LightingBright
	default:
		g.Lighting = LightingGood
	}

	g.Quality = QualityGood
	if r.sharpness(gray) < r.cfg.BlurVariance {
		g.Quality = QualityBlurry
	}

	g.SkinRatio = skinRatio(small)
	g.FingerDetected = g.SkinRatio > r.cfg.SkinRatio

	if box, ok := r.findCard(gray); ok {
		scale := float64(frame.Cols()) / float64(small.Cols())
		full := image.Rect(
			int(float64(box.Min.X)*scale), int(float64(box.Min.Y)*scale),
			int(float64(box.Max.X)*scale), int(float64(box.Max.Y)*scale),
		)
		g.ObjectDetected = true
		g.ObjectBox = &full

		frac := float64(full.Dx()) / float64(frame.Cols())
		switch {
		case frac < r.cfg.MinCardWidth:
			g.Distance = DistanceTooFar
		case frac > r.cfg.MaxCardWidth:
			g.Distance = DistanceTooClose
		}
	}

	g.Message = message(g)
	return g
}

func message(g Guidance) string {
	switch {
	case g.Lighting == LightingDark:
		return MessageDark
	case g.Lighting == LightingBright:
		return MessageBright
	case !g.FingerDetected:
		return MessageNoFinger
	case !g.ObjectDetected:
		return MessageNoObject
	default:
		return MessageReady
	}
}

// downscale returns a 3-channel copy at most AnalysisWidth wide.
func (r *Reporter) downscale(frame gocv.Mat) gocv.Mat {
	bgr := gocv.NewMat()
	switch frame.Channels() {
	case 1:
		gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(frame, &bgr, gocv.ColorBGRAToBGR)
	default:
		frame.CopyTo(&bgr)
	}

	if bgr.Cols() <= r.cfg.AnalysisWidth {
		return bgr
	}
	defer bgr.Close()

	h := bgr.Rows() * r.cfg.AnalysisWidth / bgr.Cols()
	if h < 1 {
		h = 1
	}
	small := gocv.NewMat()
	gocv.Resize(bgr, &small, image.Pt(r.cfg.AnalysisWidth, h), 0, 0, gocv.InterpolationArea)
	return small
}

func skinRatio(bgr gocv.Mat) float64 {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, skinLower, skinUpper, &mask)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

// sharpness is the variance of the Laplacian.
func (r *Reporter) sharpness(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	data, err := lap.DataPtrFloat64()
	if err != nil || len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// findCard returns the bounding box of the largest bright blob when its
// aspect ratio looks like a card. Blobs covering most of the image are
// background, not objects.
func (r *Reporter) findCard(gray gocv.Mat) (image.Rectangle, bool) {
	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, r.cfg.ObjectThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	imageArea := gray.Rows() * gray.Cols()
	best, bestLen := -1, 0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		box := gocv.BoundingRect(c)
		if box.Dx()*box.Dy() > imageArea*9/10 {
			continue
		}
		if c.Size() > bestLen {
			best, bestLen = i, c.Size()
		}
	}
	if best < 0 || bestLen < r.cfg.MinContour {
		return image.Rectangle{}, false
	}

	box := gocv.BoundingRect(contours.At(best))
	if box.Dy() == 0 {
		return image.Rectangle{}, false
	}
	aspect := float64(box.Dx()) / float64(box.Dy())
	if aspect <= r.cfg.MinAspect || aspect >= r.cfg.MaxAspect {
		return image.Rectangle{}, false
	}
	return box, true
}
