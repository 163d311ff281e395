package analytics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// NewRouter builds the diagnostics HTTP surface: a JSON status endpoint
// and a websocket feed of search progress.
func NewRouter(hub *Hub, log zerolog.Logger) chi.Router {
	var r = chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, hub.snapshot())
	})
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		serveWS(hub, log, w, req)
	})
	return r
}

func serveWS(hub *Hub, log zerolog.Logger, w http.ResponseWriter, r *http.Request) {
	var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	var client = &Client{hub: hub, id: uuid.NewString(), send: make(chan []byte, 16)}
	hub.Register(client)

	client.sendJSON(wsMessage{Type: "progress", Payload: mustMarshal(hub.snapshot())})

	go func() {
		defer conn.Close()
		writeLoop(conn, client.send)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.Unregister(client)
			return
		}
	}
}

// writeLoop drains the client send queue, interleaving pings so dead
// peers are detected without waiting on a read.
func writeLoop(conn *websocket.Conn, send <-chan []byte) {
	var ticker = time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
