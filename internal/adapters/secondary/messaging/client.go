package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Client bundles a NATS connection with its JetStream context.
type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
}

// Connect dials url, opens JetStream and makes sure the streams exist.
func Connect(url, name string, logger *slog.Logger) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrlRedacted())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("nats async error", "subject", subject, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	if err := EnsureStreams(js); err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, JS: js}, nil
}

// ConnectWithRetry keeps calling Connect until it succeeds, timeout passes
// or ctx is done.
func ConnectWithRetry(ctx context.Context, url, name string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		client, err := Connect(url, name, logger)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warn("nats connect failed", "attempt", attempt, "error", err)

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("connect jetstream timeout after %s: %w", timeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Ping round-trips to the server.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Conn == nil {
		return errors.New("nats not connected")
	}
	if !c.Conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", c.Conn.Status())
	}
	return c.Conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() {
	if c == nil || c.Conn == nil {
		return
	}
	_ = c.Conn.Drain()
	c.Conn.Close()
}
