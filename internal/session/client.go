package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/protocol"
	"go.uber.org/zap"
)

// Lifecycle pseudo-events delivered to subscribers alongside server pushes.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventReconnectFailed = "reconnect_failed"
)

// Event is a server push or a lifecycle pseudo-event. Err is set on
// disconnect and reconnect_failed.
type Event struct {
	Name    string
	Payload json.RawMessage
	Seq     uint64
	Err     error
}

type Handler func(Event)

// OptionsFromConfig fills the retry and timeout fields from cfg.
func OptionsFromConfig(url, token string, cfg config.ClientConfig) Options {
	return Options{
		URL:         url,
		Token:       token,
		MaxAttempts: cfg.ReconnectAttempts,
		RetryDelay:  cfg.ReconnectDelay,
		EmitTimeout: cfg.EmitTimeout,
	}
}

type Options struct {
	URL   string
	Token string
	// MaxAttempts bounds the automatic reconnects after a drop.
	MaxAttempts int
	RetryDelay  time.Duration
	EmitTimeout time.Duration
	DialTimeout time.Duration
	Dialer      Dialer
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 0 {
		o.MaxAttempts = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.EmitTimeout <= 0 {
		o.EmitTimeout = 5 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.Dialer == nil {
		o.Dialer = WebSocketDialer{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type reply struct {
	frame *protocol.Frame
	err   error
}

// Client keeps one logical connection to the server alive, retrying a
// bounded number of times after a drop.
type Client struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	state    State
	attempts int
	conn     Conn
	gen      uint64
	retry    *time.Timer
	nextID   uint64
	pending  map[uint64]chan reply
	handlers map[string]map[uint64]Handler
	nextSub  uint64

	queueMu sync.Mutex
	queue   []Event
	wake    chan struct{}
	closed  chan struct{}
	once    sync.Once
}

// New returns a disconnected client. A zero MaxAttempts disables automatic
// reconnects.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	c := &Client{
		opts:     opts,
		log:      opts.Logger.Named("session"),
		pending:  make(map[uint64]chan reply),
		handlers: make(map[string]map[uint64]Handler),
		wake:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	go c.deliver()
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts is the number of reconnects made since the last successful connect.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect dials the server. A failed dial enters RECONNECTING just like a
// drop, and the dial error is returned.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.stopRetryLocked()
	c.state = StateConnecting
	c.attempts = 0
	gen := c.gen
	c.mu.Unlock()

	conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL, c.opts.Token)

	c.mu.Lock()
	if c.state != StateConnecting || c.gen != gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return ErrNotConnected
	}
	if err != nil {
		failed := !c.scheduleRetryLocked()
		c.mu.Unlock()
		c.log.Warn("connect failed", zap.Error(err))
		if failed {
			c.publish(Event{Name: EventReconnectFailed, Err: ErrReconnectFailed})
		}
		return err
	}
	c.attachLocked(conn)
	c.mu.Unlock()

	c.log.Info("connected", zap.String("url", c.opts.URL))
	c.publish(Event{Name: EventConnect})
	return nil
}

// Disconnect closes the link, cancels any pending retry and fails in-flight
// emits. It is safe to call in any state and more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopRetryLocked()
	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.failPendingLocked(ErrNotConnected)
	prev := c.state
	c.state = StateDisconnected
	c.attempts = 0
	c.mu.Unlock()

	if prev == StateConnected {
		c.log.Info("disconnected")
		c.publish(Event{Name: EventDisconnect})
	}
}

// Close disconnects and stops handler delivery. The client cannot be reused.
func (c *Client) Close() {
	c.Disconnect()
	c.once.Do(func() { close(c.closed) })
}

// Emit sends a request and waits for its reply. It fails immediately with
// ErrNotConnected unless the client is connected. A timeout leaves the link
// up; the server may still have applied the request.
func (c *Client) Emit(ctx context.Context, event string, payload interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan reply, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	frame, err := protocol.NewRequest(id, event, payload)
	if err != nil {
		c.forget(id)
		return nil, err
	}
	if err := conn.WriteFrame(frame); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	timer := time.NewTimer(c.opts.EmitTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.frame.Error != nil {
			return nil, &RemoteError{Event: event, Code: r.frame.Error.Code, Message: r.frame.Error.Message}
		}
		return r.frame.Payload, nil
	case <-timer.C:
		c.forget(id)
		return nil, ErrEmitTimeout
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

// Subscribe registers h for event and returns a function that removes it.
func (c *Client) Subscribe(event string, h Handler) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[event], id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) attachLocked(conn Conn) {
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.gen++
	go c.readLoop(conn, c.gen)
}

// scheduleRetryLocked arms the next reconnect, or moves to FAILED and
// returns false once the bound is reached.
func (c *Client) scheduleRetryLocked() bool {
	if c.attempts >= c.opts.MaxAttempts {
		c.state = StateFailed
		c.log.Error("giving up on reconnect", zap.Int("attempts", c.attempts))
		return false
	}
	c.attempts++
	c.state = StateReconnecting
	gen := c.gen
	c.retry = time.AfterFunc(c.opts.RetryDelay, func() { c.reconnect(gen) })
	return true
}

func (c *Client) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Client) failPendingLocked(err error) {
	for id, ch := range c.pending {
		ch <- reply{err: err}
		delete(c.pending, id)
	}
}

func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	if c.state != StateReconnecting || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Info("reconnecting", zap.Int("attempt", attempt), zap.Int("max", c.opts.MaxAttempts))
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL, c.opts.Token)
	cancel()

	c.mu.Lock()
	if c.state != StateReconnecting || c.gen != gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		failed := !c.scheduleRetryLocked()
		c.mu.Unlock()
		c.log.Warn("reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
		if failed {
			c.publish(Event{Name: EventReconnectFailed, Err: ErrReconnectFailed})
		}
		return
	}
	c.attachLocked(conn)
	c.mu.Unlock()

	c.log.Info("reconnected", zap.Int("attempt", attempt))
	c.publish(Event{Name: EventConnect})
}

func (c *Client) readLoop(conn Conn, gen uint64) {
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			c.dropped(gen, err)
			return
		}

		if f.IsReply() {
			c.mu.Lock()
			ch, ok := c.pending[f.Ack]
			delete(c.pending, f.Ack)
			c.mu.Unlock()
			if ok {
				ch <- reply{frame: f}
			}
			continue
		}
		if f.Event != "" {
			c.publish(Event{Name: f.Event, Payload: f.Payload, Seq: f.Seq})
		}
	}
}

// dropped handles a link failure seen by the reader of generation gen.
func (c *Client) dropped(gen uint64, cause error) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.conn.Close()
	c.conn = nil
	c.failPendingLocked(ErrNotConnected)
	failed := !c.scheduleRetryLocked()
	c.mu.Unlock()

	c.log.Warn("connection lost", zap.Error(cause))
	c.publish(Event{Name: EventDisconnect, Err: cause})
	if failed {
		c.publish(Event{Name: EventReconnectFailed, Err: ErrReconnectFailed})
	}
}

// publish queues e for the delivery goroutine so handlers may call Emit.
func (c *Client) publish(e Event) {
	c.queueMu.Lock()
	c.queue = append(c.queue, e)
	c.queueMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) deliver() {
	for {
		select {
		case <-c.wake:
		case <-c.closed:
			return
		}
		for {
			c.queueMu.Lock()
			if len(c.queue) == 0 {
				c.queueMu.Unlock()
				break
			}
			e := c.queue[0]
			c.queue = c.queue[1:]
			c.queueMu.Unlock()
			c.dispatch(e)
		}
	}
}

func (c *Client) dispatch(e Event) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[e.Name]))
	for _, h := range c.handlers[e.Name] {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	for _, h := range hs {
		c.run(h, e)
	}
}

func (c *Client) run(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("event handler panicked", zap.String("event", e.Name), zap.Any("panic", r))
		}
	}()
	h(e)
}
