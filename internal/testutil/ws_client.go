package testutil

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/protocol"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client speaking the frame protocol
type WSClient struct {
	t      *testing.T
	conn   *gorillaWS.Conn
	pushes chan *protocol.Frame
	errors chan error
	done   chan struct{}
	nextID uint64

	mu      sync.Mutex
	pending map[uint64]chan *protocol.Frame
}

// NewWSClient dials url with token as a bearer credential
func NewWSClient(t *testing.T, url, token string) *WSClient {
	t.Helper()

	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := dialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:       t,
		conn:    conn,
		pushes:  make(chan *protocol.Frame, 1024),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		pending: make(map[uint64]chan *protocol.Frame),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func (c *WSClient) readPump() {
	defer close(c.pushes)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.errors <- err
			continue
		}

		if frame.IsReply() {
			c.mu.Lock()
			ch := c.pending[frame.Ack]
			delete(c.pending, frame.Ack)
			c.mu.Unlock()
			if ch != nil {
				ch <- &frame
			}
			continue
		}

		select {
		case c.pushes <- &frame:
		case <-c.done:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// Drop closes the socket without a close handshake, like a lost network.
func (c *WSClient) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
		c.conn.Close()
	}
}

// send writes a request and returns its reply frame.
func (c *WSClient) send(event string, payload interface{}) *protocol.Frame {
	c.t.Helper()

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	reply := make(chan *protocol.Frame, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	frame, err := protocol.NewRequest(id, event, payload)
	if err != nil {
		c.t.Fatalf("failed to build request: %v", err)
	}
	data, err := json.Marshal(frame)
	if err != nil {
		c.t.Fatalf("failed to marshal request: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()
	if err != nil {
		c.t.Fatalf("failed to send %s: %v", event, err)
	}

	select {
	case f := <-reply:
		return f
	case <-time.After(5 * time.Second):
		c.t.Fatalf("timeout waiting for reply to %s", event)
		return nil
	}
}

// Request sends a request, requires success and decodes the reply into out.
func (c *WSClient) Request(event string, payload, out interface{}) {
	c.t.Helper()

	f := c.send(event, payload)
	if f.Error != nil {
		c.t.Fatalf("%s failed: %s", event, f.Error)
	}
	if out != nil {
		if err := json.Unmarshal(f.Payload, out); err != nil {
			c.t.Fatalf("failed to decode %s reply: %v", event, err)
		}
	}
}

// ExpectError sends a request and returns the error code it failed with.
func (c *WSClient) ExpectError(event string, payload interface{}) string {
	c.t.Helper()

	f := c.send(event, payload)
	if f.Error == nil {
		c.t.Fatalf("%s unexpectedly succeeded", event)
	}
	return f.Error.Code
}

// ExpectPush waits for a push of the given event, skipping others, and
// decodes its payload into out when out is not nil.
func (c *WSClient) ExpectPush(event string, timeout time.Duration, out interface{}) *protocol.Frame {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case f := <-c.pushes:
			if f == nil {
				c.t.Fatalf("connection closed while waiting for %s", event)
			}
			if f.Event != event {
				continue
			}
			if out != nil {
				if err := json.Unmarshal(f.Payload, out); err != nil {
					c.t.Fatalf("failed to decode %s payload: %v", event, err)
				}
			}
			return f
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", event, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for push %s", event)
		}
	}
}
