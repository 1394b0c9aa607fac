package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sketchroom/pkg/types"
)

// Connection wraps one live socket. All writes are serialized through a
// single writer goroutine; identity fields are set once after the
// handshake credential check and read under a lock.
type Connection struct {
	id           string
	conn         *websocket.Conn
	writeCh      chan []byte
	writeTimeout time.Duration

	userID string
	email  string
	token  string
	mu     sync.RWMutex

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded socket and starts its writer.
func NewConnection(conn *websocket.Conn, bufferSize int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.NewString(),
		conn:         conn,
		writeCh:      make(chan []byte, bufferSize),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

func (c *Connection) writeLoop() {
	// A dead socket must fail writers fast; once the loop exits on a
	// write error, pending and future WriteEvent calls see ctx.Done()
	// instead of blocking out their timeout.
	defer c.cancel()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteEvent pushes one envelope to the client.
func (c *Connection) WriteEvent(event string, payload any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ErrInvalidJSON
	}
	frame, err := json.Marshal(types.Envelope{Event: event, Data: data})
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- frame:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts the writer down and closes the socket. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SetIdentity records the authenticated user behind this socket. The
// raw token is kept so state-changing messages can be re-verified
// against expiry mid-session.
func (c *Connection) SetIdentity(userID, email, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.email = email
	c.token = token
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Connection) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Context is done once the connection is closed.
func (c *Connection) Context() context.Context { return c.ctx }
