package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"inkwell/notes/internal/db"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin policy is enforced by the CORS middleware configuration
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamEvents upgrades to a websocket, sends the current note list and then
// every list published after a mutation. Client messages are ignored.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	// subscribe before the initial load so no mutation falls in between
	ch := s.broker.Subscribe()
	defer s.broker.Unsubscribe(ch)

	notes, err := s.store.AllNotes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		s.log.Warn().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.With().Str("request_id", RequestIDFrom(r.Context())).Logger()
	log.Debug().Msg("events subscriber connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeNotes(conn, notes); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case notes, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeNotes(conn, notes); err != nil {
				log.Debug().Err(err).Msg("events subscriber write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			log.Debug().Msg("events subscriber disconnected")
			return
		}
	}
}

func writeNotes(conn *websocket.Conn, notes []db.Note) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(notes)
}
