package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// detachTimeout bounds the room call made when a connection drops.
const detachTimeout = 5 * time.Second

// Client is one websocket connection. ReadPump owns room membership; the
// forwarder goroutine started on join only writes to send.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	who     game.Identity
	limiter *rate.Limiter
	log     *zap.Logger

	// Owned by ReadPump.
	room *game.Room
	sub  *game.Subscription

	done chan struct{}
	once sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, who game.Identity) *Client {
	cfg := hub.cfg
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		who:     who,
		limiter: rate.NewLimiter(limit, max(cfg.RateBurst, 1)),
		log:     hub.log.With(zap.String("player", who.ID.String())),
		done:    make(chan struct{}),
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.leaveRoom(true)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.cfg.PongWait
	if c.hub.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil || !frame.IsRequest() {
			c.log.Debug("discarding malformed frame", zap.ByteString("data", data))
			continue
		}
		c.handle(&frame)
	}
}

func (c *Client) WritePump() {
	writeWait := c.hub.cfg.WriteWait
	ticker := time.NewTicker(c.hub.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Close stops the write pump, which in turn closes the connection.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) handle(frame *protocol.Frame) {
	if !c.limiter.Allow() {
		c.reply(protocol.NewErrorReply(frame.ID, protocol.ErrRateLimited))
		return
	}

	val, err := c.dispatch(context.Background(), frame)
	if err != nil {
		if protocol.CodeFor(err) == protocol.CodeInternal {
			c.log.Error("request failed", zap.String("event", frame.Event), zap.Error(err))
		}
		c.reply(protocol.NewErrorReply(frame.ID, err))
		return
	}
	if val == nil {
		val = protocol.OKResponse{OK: true}
	}
	out, err := protocol.NewReply(frame.ID, val)
	if err != nil {
		c.log.Error("failed to encode reply", zap.String("event", frame.Event), zap.Error(err))
		c.reply(protocol.NewErrorReply(frame.ID, err))
		return
	}
	c.reply(out)
}

func (c *Client) reply(frame *protocol.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("failed to marshal frame", zap.Error(err))
		return
	}
	c.enqueue(data)
}

// enqueue hands data to the write pump. A client that cannot keep up is
// disconnected; it resyncs after reconnecting.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn("send buffer full, closing connection")
		c.Close()
	}
}

// attach makes room the client's current room and starts forwarding its
// events. Any previous room is left first.
func (c *Client) attach(room *game.Room, sub *game.Subscription) {
	c.room = room
	c.sub = sub
	go c.forward(sub)
}

// forward converts room events into push frames until the subscription ends.
func (c *Client) forward(sub *game.Subscription) {
	for e := range sub.Events() {
		frame, err := protocol.NewPush(e.Name, e.Seq, e.Payload)
		if err != nil {
			c.log.Error("failed to encode push", zap.String("event", e.Name), zap.Error(err))
			continue
		}
		frame.Timestamp = e.At.UnixMilli()
		c.reply(frame)
	}
}

// leaveRoom ends the current membership. On a dropped connection the room
// decides whether the seat is kept.
func (c *Client) leaveRoom(disconnected bool) {
	if c.room == nil {
		return
	}
	room, sub := c.room, c.sub
	c.room, c.sub = nil, nil
	sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
	defer cancel()

	var err error
	if disconnected {
		err = room.Detach(ctx, c.who.ID)
	} else {
		err = room.Leave(ctx, c.who.ID)
	}
	if err != nil {
		c.log.Debug("leaving room", zap.String("room", room.Code()), zap.Error(err))
	}
}
