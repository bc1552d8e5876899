// Package client implements the Badgelink facade: typed NVS/AppFS/FS
// operations built on top of conn.Connection's request/response primitive,
// plus the chunked bulk-transfer sub-protocol they share.
package client

import (
	"github.com/mongoose-os/badgelink/conn"
	"github.com/mongoose-os/badgelink/transport"
)

// Client is the high-level Badgelink API a tool built on this module talks
// to. It owns a Connection and layers the typed NVS, AppFS, and FS
// operations on top of it.
type Client struct {
	Conn *conn.Connection
}

// New wraps an already-handshaken Connection.
func New(c *conn.Connection) *Client {
	return &Client{Conn: c}
}

// Open performs the connection handshake over t and returns a ready Client.
func Open(t transport.Transport) (*Client, error) {
	c, err := conn.Connect(t)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}
