// Package export renders measurement reports through external exporter
// plugins. A plugin is a directory holding a plugin.json manifest and an
// executable that reads one Request as JSON on stdin and writes one Response
// as JSON on stdout.
package export

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/ringfit/internal/sizing"
)

// Manifest describes an exporter plugin.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Formats     []string `json:"formats"`
}

// Supports reports whether the plugin renders format.
func (m Manifest) Supports(format string) bool {
	return slices.Contains(m.Formats, format)
}

// Request is sent to a plugin.
type Request struct {
	Format      string            `json:"format"`
	Measurement json.RawMessage   `json:"measurement"`
	Table       []sizing.RingSize `json:"table"`
}

// Response is read back from a plugin. Body is the rendered report.
type Response struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Plugin is a discovered exporter.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
