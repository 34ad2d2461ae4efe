package sdk

import (
	"context"

	"rfid_llrp_go/internal/reader"
)

// Connect opens the reader session. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.transport.IsConnected() {
		return nil
	}
	endpoint := reader.Endpoint{Host: c.cfg.Endpoint.Host, Port: c.cfg.Endpoint.Port}
	if err := c.transport.Connect(ctx, endpoint, c.cfg.connectTimeout()); err != nil {
		return err
	}
	c.setState(StateConnected)
	c.emitStatus("connected: " + c.cfg.Endpoint.Address())
	return nil
}

// Disconnect closes the session without touching the ROSpec. Never fails.
func (c *Client) Disconnect() {
	wasConnected := c.transport.IsConnected()
	c.transport.Disconnect()
	c.setState(StateIdle)
	if wasConnected {
		c.emitStatus("disconnected")
	}
}

// Close stops the reader and releases the session.
func (c *Client) Close() error {
	c.StopReader()
	return nil
}
