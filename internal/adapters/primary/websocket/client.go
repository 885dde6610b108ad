package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nuid"
	"golang.org/x/time/rate"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
	"github.com/chiillbro/aether-incident-response-sub000/internal/infrastructure/logging"
)

// CloseUnauthorized is sent when the handshake credential is rejected.
const CloseUnauthorized = 4401

// ClientConfig tunes a single connection.
type ClientConfig struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than PongWait.
	PingInterval time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int64
	// Outbound buffer; a client that fills it is disconnected.
	SendBuffer int
	// Inbound event rate limit. Zero disables it.
	EventsPerSecond float64
	EventsBurst     int
}

// DefaultClientConfig returns the defaults used when a field is zero.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingInterval:    54 * time.Second,
		MaxMessageSize:  8192,
		SendBuffer:      256,
		EventsPerSecond: 20,
		EventsBurst:     40,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.EventsBurst <= 0 {
		c.EventsBurst = int(c.EventsPerSecond) + 1
	}
	return c
}

// Client is a middleman between the websocket connection and the core.
type Client struct {
	id   string
	conn *websocket.Conn
	cfg  ClientConfig

	// Buffered channel of outbound messages.
	send chan domain.Event

	identityMu sync.RWMutex
	identity   *domain.Identity

	// sendMu guards send against writes after close.
	sendMu      sync.Mutex
	closed      bool
	closeCode   int
	closeReason string

	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.Connection = (*Client)(nil)

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, cfg ClientConfig, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	id := nuid.Next()

	var limiter *rate.Limiter
	if cfg.EventsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.EventsBurst)
	}

	return &Client{
		id:      id,
		conn:    conn,
		cfg:     cfg,
		send:    make(chan domain.Event, cfg.SendBuffer),
		limiter: limiter,
		logger:  logger.With("component", "websocket_client", "connection_id", id),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() (*domain.Identity, bool) {
	c.identityMu.RLock()
	defer c.identityMu.RUnlock()
	return c.identity, c.identity != nil
}

func (c *Client) SetIdentity(identity *domain.Identity) {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()
	c.identity = identity
}

// Emit queues an event. A client whose buffer is full is disconnected
// rather than allowed to stall the publisher.
func (c *Client) Emit(event string, payload interface{}) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- domain.Event{Type: event, Payload: payload}:
	default:
		c.logger.Warn("client send buffer full, disconnecting", "event", event)
		c.closeLocked(websocket.CloseTryAgainLater, "slow consumer")
	}
}

// Close flushes queued events, then closes the socket with a normal closure.
func (c *Client) Close(reason string) {
	c.CloseWithCode(websocket.CloseNormalClosure, reason)
}

func (c *Client) CloseWithCode(code int, reason string) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.closeLocked(code, reason)
}

func (c *Client) closeLocked(code int, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *Client) closeFrame() []byte {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

// ReadPump pumps messages from the websocket connection to the router.
// onDisconnect runs once the read side ends.
func (c *Client) ReadPump(ctx context.Context, router *Router, onDisconnect func(ports.Connection)) {
	defer func() {
		onDisconnect(c)
		c.Close("connection closed")
		_ = c.conn.Close()
	}()

	ctx = logging.WithConnectionID(ctx, c.id)
	if identity, ok := c.Identity(); ok {
		ctx = logging.WithUserID(ctx, identity.ID.String())
	}

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(ctx, router, message)
	}
}

// WritePump pumps queued events to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// Close was called and the queue is drained.
				if err := c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame()); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(ctx context.Context, router *Router, message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		c.Emit(domain.EventException, domain.ExceptionPayload{
			Code:    apperrors.CodeOf(apperrors.ErrInvalidPayload),
			Message: apperrors.ErrInvalidPayload.Error(),
		})
		return
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Warn("inbound event rate limited", "event", msg.Type)
		c.Emit(domain.EventException, domain.ExceptionPayload{
			Event:   msg.Type,
			Code:    apperrors.CodeOf(apperrors.ErrRateLimited),
			Message: apperrors.ErrRateLimited.Error(),
		})
		return
	}

	router.Dispatch(ctx, c, msg.Type, msg.Payload)
}
