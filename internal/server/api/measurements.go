package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ayusman/ringfit/internal/export"
	"github.com/ayusman/ringfit/internal/measure"
	"github.com/ayusman/ringfit/internal/store"
)

const defaultListLimit = 50

// Exporter renders stored measurements. *export.Service implements it.
type Exporter interface {
	Export(ctx context.Context, pluginName, format string, m *store.Measurement) (*export.Response, error)
	Plugins() []*export.Plugin
}

// MeasurementsHandler handles HTTP requests for measurement history.
type MeasurementsHandler struct {
	store    *store.Store
	history  *measure.StoreHistory
	exporter Exporter
	logger   *zap.Logger
}

// NewMeasurementsHandler creates a MeasurementsHandler. exporter may be nil,
// in which case export requests return 404.
func NewMeasurementsHandler(s *store.Store, exporter Exporter, logger *zap.Logger) *MeasurementsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeasurementsHandler{
		store:    s,
		history:  measure.NewStoreHistory(s.Measurements()),
		exporter: exporter,
		logger:   logger,
	}
}

type listMeasurementsResponse struct {
	Measurements []measure.Result `json:"measurements"`
}

type listExportsResponse struct {
	Exports []store.ExportRecord `json:"exports"`
}

// ServeHTTP routes:
//
//	GET    /api/measurements
//	GET    /api/measurements/{id}
//	DELETE /api/measurements/{id}
//	GET    /api/measurements/{id}/exports
//	POST   /api/measurements/{id}/export/{plugin}
func (h *MeasurementsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/measurements")

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "exports":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.exports(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "export":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, parts[0], parts[2])
	default:
		http.NotFound(w, r)
	}
}

// list handles GET /api/measurements and returns the newest results.
func (h *MeasurementsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	results, err := h.history.List(limit)
	if err != nil {
		h.logger.Error("failed to list measurements", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list measurements")
		return
	}
	writeJSON(w, http.StatusOK, listMeasurementsResponse{Measurements: results})
}

// get handles GET /api/measurements/{id}.
func (h *MeasurementsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.history.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Measurement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get measurement")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// delete handles DELETE /api/measurements/{id}.
func (h *MeasurementsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Measurements().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Measurement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete measurement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exports handles GET /api/measurements/{id}/exports.
func (h *MeasurementsHandler) exports(w http.ResponseWriter, r *http.Request, id string) {
	records, err := h.store.Exports().ListByMeasurement(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exports")
		return
	}
	if records == nil {
		records = []store.ExportRecord{}
	}
	writeJSON(w, http.StatusOK, listExportsResponse{Exports: records})
}

// export handles POST /api/measurements/{id}/export/{plugin}?format=.
// The plugin's body is returned as a download.
func (h *MeasurementsHandler) export(w http.ResponseWriter, r *http.Request, id, plugin string) {
	if h.exporter == nil {
		writeError(w, http.StatusNotFound, "Exports are not configured")
		return
	}

	m, err := h.store.Measurements().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Measurement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get measurement")
		return
	}

	resp, err := h.exporter.Export(r.Context(), plugin, r.URL.Query().Get("format"), m)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrPluginNotFound):
			writeError(w, http.StatusNotFound, "Exporter not found")
		case errors.Is(err, export.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Format not supported by exporter")
		case errors.Is(err, export.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, "Exporter timed out")
		default:
			h.logger.Error("export failed", zap.String("measurement", id), zap.String("plugin", plugin), zap.Error(err))
			writeError(w, http.StatusBadGateway, "Export failed")
		}
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if resp.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resp.Filename))
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(resp.Body))
}
