package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// seenWindowSize bounds the per-session delivery memory. Live events can
	// reach a session twice (direct broadcast plus the redis bridge replaying
	// the same insert), so each connection remembers recently delivered
	// message ids and drops repeats.
	seenWindowSize = 256
)

// Connection wraps a websocket and coordinates outbound writes via a buffered
// channel. A connection is uniquely identified per user session and is safe
// for concurrent use.
type Connection struct {
	ID     string
	UserID string

	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}

	mu       sync.Mutex
	seen     map[string]struct{}
	seenRing []string
	seenPos  int
}

// NewConnection constructs a Connection for the given user.
func NewConnection(userID string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		UserID:   userID,
		ws:       ws,
		send:     make(chan []byte, 128),
		close:    make(chan struct{}),
		seen:     make(map[string]struct{}, seenWindowSize),
		seenRing: make([]string, seenWindowSize),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. If the client is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	// Checked first: both select cases can be ready after Close, and an
	// enqueue nobody will drain must not look like a delivery.
	select {
	case <-c.close:
		return errors.New("connection closed")
	default:
	}

	select {
	case <-c.close:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// MarkDelivered records eventID in the session's delivery window and reports
// whether it was new. An empty id is always considered new.
func (c *Connection) MarkDelivered(eventID string) bool {
	if eventID == "" {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[eventID]; ok {
		return false
	}
	if evicted := c.seenRing[c.seenPos]; evicted != "" {
		delete(c.seen, evicted)
	}
	c.seenRing[c.seenPos] = eventID
	c.seenPos = (c.seenPos + 1) % seenWindowSize
	c.seen[eventID] = struct{}{}
	return true
}

// Close terminates the connection and stops the write loop. The send channel
// is left open: closing it would race Send into a panic, and the write loop
// already exits on the close signal.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		if c.ws != nil {
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
			_ = c.ws.Close()
		}
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
