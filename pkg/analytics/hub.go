package analytics

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkazuya/sente/pkg/types"
)

// Hub fans search progress out to connected websocket clients. Slow
// clients are skipped rather than allowed to back up the search thread.
type Hub struct {
	mu        sync.Mutex
	clients   map[*Client]struct{}
	broadcast chan progressPayload
	log       zerolog.Logger

	latest progressPayload
}

type Client struct {
	hub  *Hub
	id   string
	send chan []byte
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type progressPayload struct {
	Event     string   `json:"event"`
	Depth     int      `json:"depth"`
	Seldepth  int      `json:"seldepth,omitempty"`
	ScoreCp   int      `json:"score_cp"`
	MateIn    int      `json:"mate_in,omitempty"`
	Nodes     int64    `json:"nodes"`
	TimeMs    int64    `json:"time_ms"`
	Hashfull  int      `json:"hashfull"`
	MainLine  []string `json:"main_line,omitempty"`
	UpdatedAt int64    `json:"updated_at_ms"`
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan progressPayload, 64),
		log:       log,
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcast:
			h.mu.Lock()
			h.latest = payload
			for client := range h.clients {
				client.sendJSON(wsMessage{Type: "progress", Payload: mustMarshal(payload)})
			}
			h.mu.Unlock()
		}
	}
}

// OnProgress adapts engine progress callbacks into hub broadcasts. It
// is safe to install as types.LimitsType.Progress.
func (h *Hub) OnProgress(ev types.ProgressEvent) {
	switch ev.Kind {
	case types.EventPV, types.EventDepth, types.EventHashfull:
	default:
		return
	}
	var payload = progressPayload{
		Event:     eventName(ev.Kind),
		Depth:     ev.Depth,
		Hashfull:  ev.Hashfull,
		UpdatedAt: time.Now().UnixMilli(),
	}
	if info := ev.Info; info != nil {
		payload.Depth = info.Depth
		payload.Seldepth = info.Seldepth
		payload.Nodes = info.Nodes
		payload.TimeMs = info.Time.Milliseconds()
		payload.Hashfull = info.Hashfull
		if info.Score.Mate != 0 {
			payload.MateIn = info.Score.Mate
		} else {
			payload.ScoreCp = info.Score.Centipawns
		}
		for _, m := range info.MainLine {
			payload.MainLine = append(payload.MainLine, m.String())
		}
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

func eventName(kind types.EventKind) string {
	switch kind {
	case types.EventPV:
		return "pv"
	case types.EventDepth:
		return "depth"
	case types.EventHashfull:
		return "hashfull"
	case types.EventAspiration:
		return "aspiration"
	case types.EventCurrMove:
		return "currmove"
	}
	return "progress"
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("client", c.id).Msg("analytics client connected")
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.log.Debug().Str("client", c.id).Msg("analytics client gone")
}

func (h *Hub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (h *Hub) snapshot() progressPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
