package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const writeDeadline = 5 * time.Second

// Conn wraps a websocket connection behind core.SignalConnection.
// Sends go through a buffered channel drained by writePump; a full
// channel is reported as backpressure instead of blocking the room.
type Conn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newConn(c *websocket.Conn) *Conn {
	return &Conn{conn: c, send: make(chan core.Frame, 32)}
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// writeDirect writes synchronously, bypassing the send channel. Only
// safe before writePump starts, i.e. during the join handshake.
func (c *Conn) writeDirect(f core.Frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, f)
}

// closeWithCode sends an abnormal close frame before tearing the
// connection down, so clients can distinguish the failure.
func (c *Conn) closeWithCode(code int, reason string) {
	deadline := time.Now().Add(writeDeadline)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.Close()
}

func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, f); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}
