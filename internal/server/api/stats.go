package api

import (
	"net/http"

	"github.com/ayusman/ringfit/internal/store"
)

type statResponse struct {
	Name      string  `json:"name"`
	Count     int64   `json:"count"`
	TotalMS   float64 `json:"total_ms"`
	AverageMS float64 `json:"average_ms"`
	UpdatedAt string  `json:"updated_at"`
}

type listStatsResponse struct {
	Stats []statResponse `json:"stats"`
}

// StatsHandler serves the persisted telemetry counters.
type StatsHandler struct {
	store *store.Store
}

// NewStatsHandler creates a StatsHandler with the given store.
func NewStatsHandler(s *store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

// ServeHTTP handles GET /api/stats and DELETE /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		if err := h.store.Stats().Reset(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reset stats")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StatsHandler) list(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stats")
		return
	}

	resp := listStatsResponse{Stats: make([]statResponse, 0, len(stats))}
	for _, s := range stats {
		resp.Stats = append(resp.Stats, statResponse{
			Name:      s.Name,
			Count:     s.Count,
			TotalMS:   s.TotalMS,
			AverageMS: s.AverageMS(),
			UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
