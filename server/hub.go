package server

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/jacokyle01/chess-scheduler/clock"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/jacokyle01/chess-scheduler/rules"
	"github.com/jacokyle01/chess-scheduler/scheduler"
)

// Hub fans scheduler events out to websocket clients. It implements
// scheduler.Listener; slow clients drop messages instead of blocking.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

type Client struct {
	hub  *Hub
	send chan []byte
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type turnPayload struct {
	State scheduler.State `json:"state"`
	Side  string          `json:"side"`
	Slot  int             `json:"slot"`
}

type analysisPayload struct {
	Role   string                `json:"role"`
	Side   string                `json:"side"`
	Epoch  uint64                `json:"epoch"`
	Result models.AnalysisResult `json:"result"`
	SAN    []string              `json:"san"`
}

type enginePayload struct {
	Error string `json:"error"`
	Side  string `json:"side,omitempty"`
	Slot  int    `json:"slot"`
	Fatal bool   `json:"fatal"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (h *Hub) broadcast(typ string, payload any) {
	data, err := json.Marshal(wsMessage{Type: typ, Payload: mustMarshal(payload)})
	if err != nil {
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		c.sendRaw(data)
	}
	h.mu.Unlock()
}

func (h *Hub) BoardChanged(u scheduler.BoardUpdate) {
	h.broadcast("board", u)
}

func (h *Hub) ClockChanged(s clock.State) {
	h.broadcast("clock", s)
}

func (h *Hub) AnalysisUpdated(a scheduler.Analysis) {
	h.broadcast("analysis", analysisPayload{
		Role:   a.Role.String(),
		Side:   models.ColorName(a.Side),
		Epoch:  a.Epoch,
		Result: a.Result,
		SAN:    a.SAN,
	})
}

func (h *Hub) TurnChanged(t scheduler.Turn) {
	h.broadcast("turn", turnPayload{State: t.State, Side: models.ColorName(t.Side), Slot: t.Slot})
}

func (h *Hub) ChartAppended(p models.ChartPoint) {
	h.broadcast("chart", p)
}

func (h *Hub) GameOver(e rules.Ending) {
	h.broadcast("game_over", e)
}

func (h *Hub) EngineError(err error) {
	p := enginePayload{Error: err.Error()}
	var (
		failure     *scheduler.EngineFailureError
		unavailable *scheduler.EngineUnavailableError
	)
	switch {
	case errors.As(err, &failure):
		p.Side = models.ColorName(failure.Side)
		p.Slot = failure.Slot
		p.Fatal = failure.Fatal
	case errors.As(err, &unavailable):
		p.Side = models.ColorName(unavailable.Side)
		p.Fatal = true
	}
	h.broadcast("engine_error", p)
}

func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}

var _ scheduler.Listener = (*Hub)(nil)
