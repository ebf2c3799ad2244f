package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/AFK4203/Book-generator-V3/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// handleWebsocket streams a session's progress events to the client.
// On connect the latest retained event is replayed so a late watcher
// sees current state immediately. The client is not expected to send
// anything; its read side only detects disconnects.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.manager.Get(r.Context(), sessionID); err != nil {
		s.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe(sessionID)
	defer s.bus.Unsubscribe(sessionID, sub)

	// Reader goroutine: surfaces client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev events.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed", "session_id", sessionID, "error", err)
			return false
		}
		return true
	}

	if latest, ok := s.bus.Latest(sessionID); ok {
		if !send(latest) {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, open := <-sub:
			if !open {
				return
			}
			if !send(ev) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
