package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/protocol"
	"github.com/gorilla/websocket"
)

// Conn is one established link carrying protocol frames.
type Conn interface {
	// ReadFrame blocks until a frame arrives or the link fails.
	ReadFrame() (*protocol.Frame, error)
	WriteFrame(f *protocol.Frame) error
	Close() error
}

// Dialer opens authenticated links.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// WebSocketDialer dials the server's websocket endpoint with a bearer token.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, url, token string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	writeWait := d.WriteWait
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &wsConn{conn: conn, writeWait: writeWait}, nil
}

type wsConn struct {
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
}

func (c *wsConn) ReadFrame() (*protocol.Frame, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var f protocol.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		return &f, nil
	}
}

func (c *wsConn) WriteFrame(f *protocol.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
