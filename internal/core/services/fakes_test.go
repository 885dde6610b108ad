package services_test

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type emitted struct {
	Event   string
	Payload interface{}
}

// fakeConn records everything emitted to it.
type fakeConn struct {
	mu       sync.Mutex
	id       string
	identity *domain.Identity
	events   []emitted
	closed   bool
}

func newFakeConn(id string, identity *domain.Identity) *fakeConn {
	return &fakeConn{id: id, identity: identity}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Identity() (*domain.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity, c.identity != nil
}

func (c *fakeConn) SetIdentity(identity *domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = identity
}

func (c *fakeConn) Emit(event string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.events = append(c.events, emitted{Event: event, Payload: payload})
}

func (c *fakeConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) eventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.events))
	for _, e := range c.events {
		names = append(names, e.Event)
	}
	return names
}

func (c *fakeConn) last(event string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Event == event {
			return c.events[i].Payload, true
		}
	}
	return nil, false
}

func (c *fakeConn) count(event string) int {
	n := 0
	for _, name := range c.eventNames() {
		if name == event {
			n++
		}
	}
	return n
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeRegistry is a minimal in-memory channel registry.
type fakeRegistry struct {
	mu       sync.Mutex
	channels map[string]map[string]ports.Connection
}

var _ ports.ChannelRegistry = (*fakeRegistry)(nil)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{channels: make(map[string]map[string]ports.Connection)}
}

func (r *fakeRegistry) Register(conn ports.Connection) {}

func (r *fakeRegistry) Unregister(conn ports.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, members := range r.channels {
		delete(members, conn.ID())
	}
}

func (r *fakeRegistry) Join(channel string, conn ports.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[string]ports.Connection)
	}
	r.channels[channel][conn.ID()] = conn
}

func (r *fakeRegistry) Leave(channel string, conn ports.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels[channel], conn.ID())
}

func (r *fakeRegistry) IsMember(channel string, conn ports.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[channel][conn.ID()]
	return ok
}

func (r *fakeRegistry) members(channel string) []ports.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.Connection, 0, len(r.channels[channel]))
	for _, c := range r.channels[channel] {
		out = append(out, c)
	}
	return out
}

func (r *fakeRegistry) Publish(channel, event string, payload interface{}) {
	for _, c := range r.members(channel) {
		c.Emit(event, payload)
	}
}

func (r *fakeRegistry) PublishExcept(channel string, excludeUserID uuid.UUID, event string, payload interface{}) {
	for _, c := range r.members(channel) {
		if identity, ok := c.Identity(); ok && identity.ID == excludeUserID {
			continue
		}
		c.Emit(event, payload)
	}
}

func (r *fakeRegistry) DisconnectAll(channel, reason string) {
	for _, c := range r.members(channel) {
		c.Close(reason)
		r.Leave(channel, c)
	}
}

// manualTimers hands out timers that only fire when the test says so.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	wasActive := !m.stopped
	m.stopped = true
	return wasActive
}

func (m *manualTimers) afterFunc(d time.Duration, fn func()) services.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualTimers) get(i int) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[i]
}

func (m *manualTimers) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// fireLatest fires the most recent timer if it is still active.
func (m *manualTimers) fireLatest() {
	t := m.get(m.len() - 1)
	if !t.stopped {
		t.fn()
	}
}

func newIdentity(name string, role domain.Role, teamID *uuid.UUID) *domain.Identity {
	return &domain.Identity{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@example.com",
		Role:   role,
		TeamID: teamID,
	}
}
