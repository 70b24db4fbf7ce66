package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/healer-app/messaging/internal/common"
)

const writeTimeout = 10 * time.Second

// Conn is one live connection handle. Owned by the session gateway for its
// lifetime; identity is the connection id, not the user id, so a stale handle
// can never evict its successor from the presence table.
type Conn interface {
	ID() string
	Send(event string, data any) error
	Close() error
}

type wsConn struct {
	id string
	ws *websocket.Conn

	// Protocol handlers for other users write to this connection
	// concurrently with the owner's read-loop responses.
	mu sync.Mutex
}

func newWSConn(ws *websocket.Conn) (*wsConn, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	return &wsConn{id: id, ws: ws}, nil
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(outEnvelope{Event: event, Data: data})
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
