package websocket_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/websocket"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingConn struct {
	mu       sync.Mutex
	id       string
	identity *domain.Identity
	events   []string
	closedBy string
}

func newRecordingConn(id string) *recordingConn {
	return &recordingConn{id: id, identity: &domain.Identity{ID: uuid.New(), Name: id}}
}

func (c *recordingConn) ID() string { return c.id }
func (c *recordingConn) Identity() (*domain.Identity, bool) {
	return c.identity, c.identity != nil
}
func (c *recordingConn) SetIdentity(identity *domain.Identity) { c.identity = identity }
func (c *recordingConn) Emit(event string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}
func (c *recordingConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closedBy = reason
}
func (c *recordingConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func TestHub_JoinIsIdempotentAndLeaveIsNoop(t *testing.T) {
	hub := websocket.NewHub(discardLogger())
	conn := newRecordingConn("c1")
	hub.Register(conn)

	hub.Join("incident-1", conn)
	hub.Join("incident-1", conn)
	assert.Equal(t, 1, hub.GetClientsInChannel("incident-1"))
	assert.True(t, hub.IsMember("incident-1", conn))

	hub.Leave("incident-2", conn)
	hub.Leave("incident-1", conn)
	hub.Leave("incident-1", conn)

	assert.False(t, hub.IsMember("incident-1", conn))
	assert.Equal(t, 0, hub.GetChannelCount(), "empty channels are dropped")
}

func TestHub_PublishReachesOnlyMembers(t *testing.T) {
	hub := websocket.NewHub(discardLogger())
	a, b, outsider := newRecordingConn("a"), newRecordingConn("b"), newRecordingConn("x")
	hub.Join("incident-1", a)
	hub.Join("incident-1", b)
	hub.Join("incident-2", outsider)

	hub.Publish("incident-1", "newIncidentMessage", "hi")
	hub.Publish("incident-1", "taskCreated", nil)
	hub.Publish("nobody-here", "ignored", nil)

	assert.Equal(t, []string{"newIncidentMessage", "taskCreated"}, a.received())
	assert.Equal(t, []string{"newIncidentMessage", "taskCreated"}, b.received())
	assert.Empty(t, outsider.received())
}

func TestHub_PublishExceptSkipsAllConnectionsOfUser(t *testing.T) {
	hub := websocket.NewHub(discardLogger())
	tab1, tab2, other := newRecordingConn("tab1"), newRecordingConn("tab2"), newRecordingConn("other")
	tab2.identity = tab1.identity
	for _, c := range []*recordingConn{tab1, tab2, other} {
		hub.Join("incident-1", c)
	}

	hub.PublishExcept("incident-1", tab1.identity.ID, "userTyping", nil)

	assert.Empty(t, tab1.received())
	assert.Empty(t, tab2.received())
	assert.Equal(t, []string{"userTyping"}, other.received())
}

func TestHub_UnregisterDropsEveryMembership(t *testing.T) {
	hub := websocket.NewHub(discardLogger())
	conn := newRecordingConn("c1")
	stay := newRecordingConn("c2")
	hub.Register(conn)
	hub.Register(stay)
	hub.Join("incident-1", conn)
	hub.Join("broadcast", conn)
	hub.Join("broadcast", stay)

	hub.Unregister(conn)
	hub.Unregister(conn)

	assert.Equal(t, 1, hub.GetClientCount())
	assert.False(t, hub.IsMember("incident-1", conn))
	assert.False(t, hub.IsMember("broadcast", conn))
	assert.True(t, hub.IsMember("broadcast", stay))
	assert.Equal(t, 1, hub.GetChannelCount())
}

func TestHub_DisconnectAll(t *testing.T) {
	hub := websocket.NewHub(discardLogger())
	members := []*recordingConn{newRecordingConn("a"), newRecordingConn("b"), newRecordingConn("c")}
	bystander := newRecordingConn("d")
	for _, c := range members {
		hub.Join("incident-INC-1", c)
		hub.Join("broadcast", c)
	}
	hub.Join("broadcast", bystander)

	hub.Publish("incident-INC-1", "incidentDeleted", nil)
	hub.DisconnectAll("incident-INC-1", "incident deleted")

	for _, c := range members {
		assert.Equal(t, []string{"incidentDeleted"}, c.received())
		assert.Equal(t, "incident deleted", c.closedBy)
		assert.False(t, hub.IsMember("incident-INC-1", c))
	}
	assert.Empty(t, bystander.closedBy)
	assert.Equal(t, 0, hub.GetClientsInChannel("incident-INC-1"))
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := websocket.NewHub(discardLogger())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newRecordingConn(uuid.NewString())
			hub.Register(c)
			hub.Join("incident-1", c)
			hub.Publish("incident-1", "ping", nil)
			if i%2 == 0 {
				hub.Unregister(c)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, hub.GetClientCount())
	assert.Equal(t, 25, hub.GetClientsInChannel("incident-1"))
}
