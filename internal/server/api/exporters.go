package api

import (
	"net/http"
)

type exporterResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Formats     []string `json:"formats"`
}

type listExportersResponse struct {
	Exporters []exporterResponse `json:"exporters"`
}

// ExportersHandler lists the installed export plugins.
type ExportersHandler struct {
	exporter Exporter
}

// NewExportersHandler creates an ExportersHandler.
func NewExportersHandler(e Exporter) *ExportersHandler {
	return &ExportersHandler{exporter: e}
}

// ServeHTTP handles GET /api/exporters.
func (h *ExportersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := h.exporter.Plugins()
	resp := listExportersResponse{Exporters: make([]exporterResponse, 0, len(plugins))}
	for _, p := range plugins {
		resp.Exporters = append(resp.Exporters, exporterResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Formats:     p.Manifest.Formats,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
