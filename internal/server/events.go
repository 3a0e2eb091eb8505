package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settings"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// EventSettingsUpdated is sent whenever the store publishes new settings.
const EventSettingsUpdated = "settings_updated"

// Event is one message on the /api/events stream.
type Event struct {
	Type     string            `json:"type"`
	Settings settings.Snapshot `json:"settings"`
	Changed  []string          `json:"changed,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleEvents upgrades to a websocket and streams settings changes until
// the client disconnects or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// wg.Add must not race with Shutdown's Wait.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Event stream upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	last, updates, cancel := s.store.Subscribe()
	defer cancel()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.Debug("Event stream closed", zap.String("remote_addr", remoteAddr))
	}()

	logging.Debug("Event stream opened", zap.String("remote_addr", remoteAddr))

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			ev := Event{
				Type:     EventSettingsUpdated,
				Settings: snap,
				Changed:  settings.ChangedFields(last, snap),
			}
			last = snap
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logging.Debug("Event write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

// readPump discards client messages and signals when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
