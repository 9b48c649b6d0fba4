package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/ayusman/ringfit/internal/sizing"
)

type sizesResponse struct {
	Sizes []sizing.RingSize `json:"sizes"`
}

type lookupResponse struct {
	DiameterMM      float64         `json:"diameter_mm"`
	CircumferenceMM float64         `json:"circumference_mm"`
	Size            sizing.RingSize `json:"size"`
	Label           string          `json:"label"`
}

// SizesHandler serves the ring size chart.
type SizesHandler struct{}

// NewSizesHandler creates a SizesHandler.
func NewSizesHandler() *SizesHandler {
	return &SizesHandler{}
}

// ServeHTTP handles GET /api/sizes and GET /api/sizes/lookup?diameter_mm=.
func (h *SizesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts := splitPath(r.URL.Path, "/api/sizes"); {
	case len(parts) == 0:
		writeJSON(w, http.StatusOK, sizesResponse{Sizes: sizing.Table()})
	case len(parts) == 1 && parts[0] == "lookup":
		h.lookup(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SizesHandler) lookup(w http.ResponseWriter, r *http.Request) {
	d, err := strconv.ParseFloat(r.URL.Query().Get("diameter_mm"), 64)
	if err != nil || d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		writeError(w, http.StatusBadRequest, "diameter_mm must be a positive number")
		return
	}

	size, err := sizing.Lookup(d)
	if err != nil {
		writeError(w, http.StatusNotFound, "No ring size matches that diameter")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{
		DiameterMM:      d,
		CircumferenceMM: d * math.Pi,
		Size:            size,
		Label:           size.Label(),
	})
}
