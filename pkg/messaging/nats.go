// Package messaging wraps the NATS connection used to mirror engine events
// onto the message bus.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Options holds NATS connection settings.
type Options struct {
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
}

// Client is a thin JSON publisher over a NATS connection.
type Client struct {
	conn *nats.Conn
}

// Connect dials the NATS server.
func Connect(url string, opts Options) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.Name(opts.Name),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Publish marshals v as JSON and publishes it on the subject.
func (c *Client) Publish(subject string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// IsConnected reports connection health.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
