// Package main provides an exporter plugin that renders a ring size
// measurement as a plain text or Markdown report.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Request represents the input from the export executor.
type Request struct {
	Format      string          `json:"format"`
	Measurement json.RawMessage `json:"measurement"`
	Table       []Size          `json:"table"`
}

// Response represents the output to the export executor.
type Response struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Size is one row of the size table.
type Size struct {
	US              float64 `json:"us"`
	UK              string  `json:"uk"`
	EU              int     `json:"eu"`
	DiameterMM      float64 `json:"diameter_mm"`
	CircumferenceMM float64 `json:"circumference_mm"`
}

type zone struct {
	Name    string  `json:"name"`
	WidthMM float64 `json:"width_mm"`
	ErrorMM float64 `json:"error_mm"`
}

// measurement is the subset of a result the report shows.
type measurement struct {
	ID                    string   `json:"id"`
	RingSize              Size     `json:"ring_size"`
	Confidence            int      `json:"confidence"`
	Method                string   `json:"method"`
	Stage                 string   `json:"stage"`
	FingerDiameterMM      float64  `json:"finger_diameter_mm"`
	FingerCircumferenceMM float64  `json:"finger_circumference_mm"`
	Zones                 []zone   `json:"zones"`
	Notes                 []string `json:"notes"`
	CreatedAt             string   `json:"created_at"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	var m measurement
	if err := json.Unmarshal(req.Measurement, &m); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode measurement: %v", err)})
		return
	}

	switch req.Format {
	case "txt":
		writeResponse(Response{
			Success:     true,
			ContentType: "text/plain; charset=utf-8",
			Filename:    "ring-size-" + shortID(m.ID) + ".txt",
			Body:        renderText(m, req.Table),
		})
	case "md":
		writeResponse(Response{
			Success:     true,
			ContentType: "text/markdown; charset=utf-8",
			Filename:    "ring-size-" + shortID(m.ID) + ".md",
			Body:        renderMarkdown(m, req.Table),
		})
	default:
		writeResponse(Response{Error: fmt.Sprintf("unknown format: %s", req.Format)})
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sizeLabel(s Size) string {
	if s.US == float64(int(s.US)) {
		return fmt.Sprintf("%d", int(s.US))
	}
	return fmt.Sprintf("%.1f", s.US)
}

// neighbours returns the rows either side of the measured size.
func neighbours(table []Size, us float64) []Size {
	for i, s := range table {
		if s.US != us {
			continue
		}
		lo, hi := max(0, i-1), min(len(table), i+2)
		return table[lo:hi]
	}
	return nil
}

func renderText(m measurement, table []Size) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ring size: US %s / UK %s / EU %d\n", sizeLabel(m.RingSize), m.RingSize.UK, m.RingSize.EU)
	fmt.Fprintf(&b, "Inner diameter: %.1f mm\n", m.RingSize.DiameterMM)
	fmt.Fprintf(&b, "Finger width: %.1f mm (circumference %.1f mm)\n", m.FingerDiameterMM, m.FingerCircumferenceMM)
	fmt.Fprintf(&b, "Confidence: %d%% (%s, %s)\n", m.Confidence, m.Method, m.Stage)
	for _, z := range m.Zones {
		fmt.Fprintf(&b, "  %-8s %.1f mm ± %.1f\n", z.Name, z.WidthMM, z.ErrorMM)
	}
	if rows := neighbours(table, m.RingSize.US); len(rows) > 0 {
		b.WriteString("\nNearby sizes:\n")
		for _, s := range rows {
			fmt.Fprintf(&b, "  US %-4s %.1f mm\n", sizeLabel(s), s.DiameterMM)
		}
	}
	for _, n := range m.Notes {
		fmt.Fprintf(&b, "Note: %s\n", n)
	}
	return b.String()
}

func renderMarkdown(m measurement, table []Size) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ring size US %s\n\n", sizeLabel(m.RingSize))
	fmt.Fprintf(&b, "| US | UK | EU | Diameter | Circumference |\n|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %d | %.1f mm | %.1f mm |\n\n",
		sizeLabel(m.RingSize), m.RingSize.UK, m.RingSize.EU, m.RingSize.DiameterMM, m.RingSize.CircumferenceMM)
	fmt.Fprintf(&b, "Confidence **%d%%** via `%s`.\n", m.Confidence, m.Method)
	if len(m.Zones) > 0 {
		b.WriteString("\n| Zone | Width | Error |\n|---|---|---|\n")
		for _, z := range m.Zones {
			fmt.Fprintf(&b, "| %s | %.1f mm | ±%.1f mm |\n", z.Name, z.WidthMM, z.ErrorMM)
		}
	}
	if rows := neighbours(table, m.RingSize.US); len(rows) > 0 {
		b.WriteString("\nNearby sizes: ")
		labels := make([]string, len(rows))
		for i, s := range rows {
			labels[i] = "US " + sizeLabel(s)
		}
		b.WriteString(strings.Join(labels, ", ") + "\n")
	}
	return b.String()
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
