package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/measure"
)

// Measurer runs measurements. *measure.Orchestrator implements it.
type Measurer interface {
	Measure(ctx context.Context, c measure.Capture) (measure.Result, error)
	MeasureDiameter(ctx context.Context, diameterMM float64) (measure.Result, error)
}

// MeasureHandler handles /api/measure and /api/measure/diameter.
type MeasureHandler struct {
	measurer Measurer
	logger   *zap.Logger
}

// NewMeasureHandler creates a MeasureHandler.
func NewMeasureHandler(m Measurer, logger *zap.Logger) *MeasureHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeasureHandler{measurer: m, logger: logger}
}

type diameterRequest struct {
	DiameterMM float64 `json:"diameter_mm"`
}

// ServeHTTP implements the http.Handler interface.
func (h *MeasureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts := splitPath(r.URL.Path, "/api/measure"); {
	case len(parts) == 0:
		h.measureImage(w, r)
	case len(parts) == 1 && parts[0] == "diameter":
		h.measureDiameter(w, r)
	default:
		http.NotFound(w, r)
	}
}

// measureImage handles POST /api/measure. The image is either the "image"
// field of a multipart form or the raw request body.
func (h *MeasureHandler) measureImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, capture.MaxImageBytes+1<<20)

	data, err := readImage(r)
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := capture.Inspect(data)
	switch {
	case errors.Is(err, capture.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	case err != nil:
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported image")
		return
	}

	res, err := h.measurer.Measure(r.Context(), measure.Capture{Image: data, MIMEType: info.MIMEType})
	if err != nil {
		h.writeMeasureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// measureDiameter handles POST /api/measure/diameter.
func (h *MeasureHandler) measureDiameter(w http.ResponseWriter, r *http.Request) {
	var req diameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DiameterMM <= 0 {
		writeError(w, http.StatusBadRequest, "diameter_mm must be positive")
		return
	}

	res, err := h.measurer.MeasureDiameter(r.Context(), req.DiameterMM)
	if err != nil {
		h.writeMeasureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MeasureHandler) writeMeasureError(w http.ResponseWriter, err error) {
	var exhausted *measure.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": exhausted.Message,
			"notes": exhausted.Notes,
		})
	case errors.Is(err, measure.ErrInvalidDiameter):
		writeError(w, http.StatusUnprocessableEntity, "Diameter is outside the supported ring sizes")
	case errors.Is(err, measure.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "Measurement already in progress")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Debug("measurement abandoned", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Measurement cancelled")
	default:
		h.logger.Error("measurement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Measurement failed")
	}
}

func readImage(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errors.New("missing image field")
		}
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}
