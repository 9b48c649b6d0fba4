package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// controlMessage is sent by clients on /api/live.
type controlMessage struct {
	Type           string  `json:"type"`
	RingDiameterMM float64 `json:"ring_diameter_mm,omitempty"`
}

// Control message types.
const (
	controlStart    = "start"
	controlStop     = "stop"
	controlRingSize = "ring_size"
)

// LiveHandler forwards live updates to WebSocket clients. Clients turn
// live detection on and off and pick the ring drawn by the overlay.
type LiveHandler struct {
	live   Live
	logger *zap.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(live Live, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{live: live, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.live.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go h.readControl(conn, done)

	if last, ok := h.live.Last(); ok {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(last); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(u); err != nil {
				h.logger.Debug("live client write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readControl applies client messages until the connection closes.
func (h *LiveHandler) readControl(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed live message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case controlStart:
			h.live.SetEnabled(true)
		case controlStop:
			h.live.SetEnabled(false)
		case controlRingSize:
			if msg.RingDiameterMM > 0 {
				h.live.SetRingDiameter(msg.RingDiameterMM)
			}
		default:
			h.logger.Debug("unknown live message", zap.String("type", msg.Type))
		}
	}
}
