package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// Hub is the in-process channel registry. Channels are created on first
// join and dropped when their last member leaves.
type Hub struct {
	// clients maps connection IDs to live connections
	clients map[string]ports.Connection

	// channels maps channel names to their members, keyed by connection ID
	channels map[string]map[string]ports.Connection

	// memberships is the reverse index used on unregister
	memberships map[string]map[string]struct{}

	// mu protects all three maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the ChannelRegistry interface.
var _ ports.ChannelRegistry = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]ports.Connection),
		channels:    make(map[string]map[string]ports.Connection),
		memberships: make(map[string]map[string]struct{}),
		logger:      logger.With("component", "websocket_hub"),
	}
}

// Register tracks a live connection.
func (h *Hub) Register(conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn.ID()] = conn
	h.logger.Info("client registered",
		"connection_id", conn.ID(),
		"total_connections", len(h.clients),
	)
}

// Unregister removes a connection from the hub and all channels
func (h *Hub) Unregister(conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := conn.ID()
	for channel := range h.memberships[id] {
		h.removeLocked(channel, id)
	}
	delete(h.memberships, id)

	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		h.logger.Info("client unregistered",
			"connection_id", id,
			"total_connections", len(h.clients),
		)
	}
}

func (h *Hub) Join(channel string, conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := conn.ID()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]ports.Connection)
	}
	h.channels[channel][id] = conn

	if h.memberships[id] == nil {
		h.memberships[id] = make(map[string]struct{})
	}
	h.memberships[id][channel] = struct{}{}

	h.logger.Debug("client joined channel",
		append(channelAttrs(channel),
			"connection_id", id,
			"members", len(h.channels[channel]),
		)...,
	)
}

// Leave is a no-op when conn is not a member.
func (h *Hub) Leave(channel string, conn ports.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(channel, conn.ID())
}

// channelAttrs names the channel and, for incident rooms, the incident.
func channelAttrs(channel string) []any {
	if incidentID, ok := domain.IncidentIDFromChannel(channel); ok {
		return []any{"channel", channel, "incident_id", incidentID}
	}
	return []any{"channel", channel}
}

// removeLocked must be called with mu held.
func (h *Hub) removeLocked(channel, id string) {
	if members, ok := h.channels[channel]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	if joined, ok := h.memberships[id]; ok {
		delete(joined, channel)
		if len(joined) == 0 {
			delete(h.memberships, id)
		}
	}
}

func (h *Hub) IsMember(channel string, conn ports.Connection) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.channels[channel][conn.ID()]
	return ok
}

// snapshot copies the members so nothing is emitted while holding the lock.
func (h *Hub) snapshot(channel string) []ports.Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.channels[channel]
	out := make([]ports.Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// Publish delivers event to every member of channel. Delivery is
// fire-and-forget and FIFO per connection.
func (h *Hub) Publish(channel, event string, payload interface{}) {
	members := h.snapshot(channel)

	h.logger.Debug("publishing event",
		append(channelAttrs(channel),
			"event", event,
			"client_count", len(members),
		)...,
	)
	for _, conn := range members {
		conn.Emit(event, payload)
	}
}

func (h *Hub) PublishExcept(channel string, excludeUserID uuid.UUID, event string, payload interface{}) {
	for _, conn := range h.snapshot(channel) {
		if identity, ok := conn.Identity(); ok && identity.ID == excludeUserID {
			continue
		}
		conn.Emit(event, payload)
	}
}

// DisconnectAll removes every member from channel and closes it. Events
// already queued for a connection are flushed before the close.
func (h *Hub) DisconnectAll(channel, reason string) {
	h.mu.Lock()
	members := h.channels[channel]
	evicted := make([]ports.Connection, 0, len(members))
	for id, conn := range members {
		evicted = append(evicted, conn)
		if joined, ok := h.memberships[id]; ok {
			delete(joined, channel)
			if len(joined) == 0 {
				delete(h.memberships, id)
			}
		}
	}
	delete(h.channels, channel)
	h.mu.Unlock()

	h.logger.Info("disconnecting channel",
		append(channelAttrs(channel),
			"reason", reason,
			"client_count", len(evicted),
		)...,
	)
	for _, conn := range evicted {
		conn.Close(reason)
	}
}

// Shutdown closes every registered connection.
func (h *Hub) Shutdown(reason string) {
	h.mu.RLock()
	conns := make([]ports.Connection, 0, len(h.clients))
	for _, conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close(reason)
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelCount returns the number of channels with at least one member
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// GetClientsInChannel returns the number of members of a channel
func (h *Hub) GetClientsInChannel(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
