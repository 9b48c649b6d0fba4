package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/ringfit/internal/app"
)

// streamPoll is how often the stream checks for a new frame.
const streamPoll = 33 * time.Millisecond

// Live is the part of the live loop the HTTP surface uses.
// *app.App implements it.
type Live interface {
	LatestJPEG() ([]byte, uint64)
	Subscribe() (<-chan app.Update, func())
	Last() (app.Update, bool)
	SetEnabled(enabled bool)
	IsEnabled() bool
	SetRingDiameter(mm float64)
}

// StreamHandler serves the live loop's frames as MJPEG.
type StreamHandler struct {
	live Live
}

// NewStreamHandler creates a new StreamHandler reading from live.
func NewStreamHandler(live Live) *StreamHandler {
	return &StreamHandler{live: live}
}

// ServeHTTP streams each new frame to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamPoll)
	defer ticker.Stop()

	var sent uint64
	for {
		if frame, seq := h.live.LatestJPEG(); seq != sent && len(frame) > 0 {
			if err := writePart(w, frame); err != nil {
				return
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

