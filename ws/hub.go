package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// envelope is the wire format for every event pushed to subscribers.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub associates live connections with room names and fans engine events
// out to them. It implements the engine's EventSink and Presence contracts.
// Per-room emission order is preserved: payloads are queued on each
// connection's send channel under the hub lock, in emission order.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*client

	onDisconnect func(room, playerID string)
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*client)}
}

// OnDisconnect registers the callback invoked after a connection drops and
// has been removed from the hub. Called without any hub lock held.
func (h *Hub) OnDisconnect(fn func(room, playerID string)) {
	h.onDisconnect = fn
}

func (h *Hub) add(c *client) {
	var stale *client
	h.mu.Lock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[string]*client)
	}
	if existing, ok := h.rooms[c.room][c.playerID]; ok {
		stale = existing
	}
	h.rooms[c.room][c.playerID] = c
	h.mu.Unlock()

	// A reconnect replaces the old connection without counting as a leave.
	if stale != nil {
		stale.closeSend()
		log.Warn().Str("room", c.room).Str("player", c.playerID).Msg("replaced stale connection")
	}
	log.Info().Str("room", c.room).Str("player", c.playerID).Msg("subscriber connected")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	current, ok := h.rooms[c.room][c.playerID]
	if !ok || current != c {
		h.mu.Unlock()
		return
	}
	delete(h.rooms[c.room], c.playerID)
	if len(h.rooms[c.room]) == 0 {
		delete(h.rooms, c.room)
	}
	h.mu.Unlock()

	c.closeSend()
	log.Info().Str("room", c.room).Str("player", c.playerID).Msg("subscriber disconnected")
	if h.onDisconnect != nil {
		h.onDisconnect(c.room, c.playerID)
	}
}

// LiveConnections reports the number of live subscribers for a room.
func (h *Hub) LiveConnections(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ToRoom queues an event for every subscriber of a room.
func (h *Hub) ToRoom(room, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		c.enqueue(data)
	}
}

// ToPlayer queues an event for a single subscriber.
func (h *Hub) ToPlayer(room, playerID, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.rooms[room][playerID]; ok {
		c.enqueue(data)
	}
}

// ToAll queues an event for every subscriber of every room.
func (h *Hub) ToAll(event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range h.rooms {
		for _, c := range room {
			c.enqueue(data)
		}
	}
}
