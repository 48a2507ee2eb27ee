package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Depth snapshots are public market data; the stream carries no
	// credentials, so any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleOrderBookStream pushes depth snapshots over a websocket at the
// configured interval until the client disconnects.
func (s *Server) handleOrderBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain incoming frames so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(s.depthSnapshot(0)); err != nil {
				s.log.Debug("websocket client gone", "error", err)
				return
			}
		}
	}
}
