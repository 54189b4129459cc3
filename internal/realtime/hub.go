package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Bridge publishes room-scoped events to other instances and subscribes to a
// room's channel. Nil bridge means single-instance, purely in-memory fanout.
type Bridge interface {
	PublishRoomEvent(code, event string, payload []byte, origin string) error
	SubscribeRoom(code string, handler func(event string, payload []byte, origin string)) (cancel func(), err error)
}

// Hub maintains session code -> set of connections and delivers messages with
// the audience scoping the engine requires: whole room, room minus the acting
// connection, or a single connection.
type Hub struct {
	clients    map[string]*Client            // all connections, by identity
	rooms      map[string]map[string]*Client // code -> identity -> client
	subs       map[string]func()             // cancel bridge subscription per room
	mu         sync.RWMutex
	logger     *zap.Logger
	bridge     Bridge
	instanceID string
}

// NewHub creates a hub. bridge may be nil.
func NewHub(logger *zap.Logger, bridge Bridge, instanceID string) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		subs:       make(map[string]func()),
		logger:     logger,
		bridge:     bridge,
		instanceID: instanceID,
	}
}

// Register adds a connection to the hub. The client is in no room yet.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID))
}

// Unregister removes a connection from the hub and from its room, cancelling
// the room's bridge subscription when the last member leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.leaveRoomLocked(c)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// JoinRoom adds the client to the room for a session code, moving it out of
// any previous room. The first member triggers the bridge subscription.
func (h *Hub) JoinRoom(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(c)
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]*Client)
		if h.bridge != nil {
			cancel, err := h.bridge.SubscribeRoom(code, func(event string, payload []byte, origin string) {
				if origin == h.instanceID {
					return // already delivered locally
				}
				h.deliverToRoom(code, "", event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[code] = cancel
			} else {
				h.logger.Warn("room subscribe failed", zap.String("code", code), zap.Error(err))
			}
		}
	}
	h.rooms[code][c.ID] = c
	c.room = code
}

// LeaveRoom removes the client from its room, if any.
func (h *Hub) LeaveRoom(c *Client) {
	h.mu.Lock()
	h.leaveRoomLocked(c)
	h.mu.Unlock()
}

func (h *Hub) leaveRoomLocked(c *Client) {
	if c.room == "" {
		return
	}
	if m, ok := h.rooms[c.room]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.room)
			if cancel, ok := h.subs[c.room]; ok {
				cancel()
				delete(h.subs, c.room)
			}
		}
	}
	c.room = ""
}

// BroadcastToRoom sends an event to every connection in the room, locally and
// through the bridge.
func (h *Hub) BroadcastToRoom(code, event string, payload interface{}) {
	h.scopedBroadcast(code, "", event, payload)
}

// BroadcastToRoomExcept sends an event to the room minus the acting
// connection. Remote instances deliver to all of their clients; the actor is
// always local.
func (h *Hub) BroadcastToRoomExcept(code, exceptID, event string, payload interface{}) {
	h.scopedBroadcast(code, exceptID, event, payload)
}

func (h *Hub) scopedBroadcast(code, exceptID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal broadcast payload", zap.String("event", event), zap.Error(err))
		return
	}
	h.deliverToRoom(code, exceptID, event, data)
	if h.bridge != nil {
		if err := h.bridge.PublishRoomEvent(code, event, data, h.instanceID); err != nil {
			h.logger.Warn("bridge publish failed", zap.String("event", event), zap.Error(err))
		}
	}
}

func (h *Hub) deliverToRoom(code, exceptID, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[code]
	targets := make([]*Client, 0, len(clients))
	for id, c := range clients {
		if id != exceptID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// SendToClient sends an event to a single connection.
func (h *Hub) SendToClient(clientID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal client payload", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}
