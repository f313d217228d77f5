package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	// wsBuffer bounds the per-client event backlog. A client that cannot
	// drain it loses events rather than stalling the game loop.
	wsBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// gameEvents upgrades the connection and streams the game's events until
// the client disconnects.
func (s *Server) gameEvents(w http.ResponseWriter, r *http.Request) {
	game, ok := s.registry.Get(chi.URLParam(r, "game_id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := make(chan events.Event, wsBuffer)
	token := game.Hub.Subscribe(func(evt events.Event) {
		select {
		case ch <- evt:
		default:
			s.logger.Warn("event subscriber lagging, dropping event",
				zap.String("game_id", evt.GameID),
				zap.String("kind", string(evt.Kind)),
			)
		}
	})
	defer game.Hub.Unsubscribe(token)

	// Reads are discarded; the loop exists to notice the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt := <-ch:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
