package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BinaryCat17/RapidServer/internal/logger"
	"github.com/BinaryCat17/RapidServer/internal/metrics"
)

const (
	// sendQueueSize bounds the per-connection outbound queue. Relayed
	// frames beyond it are dropped rather than blocking the publisher.
	sendQueueSize = 64

	writeWait = 10 * time.Second
)

// Socket is the write side of a transport connection. *websocket.Conn
// satisfies it; tests substitute a recording fake.
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn is the per-socket connection record. The identity fields are owned
// by the connection's reader goroutine: the transport delivers all inbound
// frames for one socket sequentially, so handlers never race on them. The
// outbound queue is the only part touched by other goroutines.
type Conn struct {
	// ID identifies the connection in logs.
	ID string

	remoteAddr string
	sock       Socket

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	// Identity state, reader-goroutine only. Zero means unset: session
	// IDs are autoincremented from 1.
	userID        uint
	sessionID     uint
	farmSessionID uint
	isFarm        bool

	// ownTopic is the topic this connection subscribed to at sign-in,
	// kept for unsubscribing on sign-out.
	ownTopic string
}

// NewConn wraps a socket in a connection record and starts its writer.
func NewConn(sock Socket, remoteAddr string) *Conn {
	c := &Conn{
		ID:         uuid.New().String(),
		remoteAddr: remoteAddr,
		sock:       sock,
		send:       make(chan []byte, sendQueueSize),
		closed:     make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// SignedIn reports whether the connection has a bound user.
func (c *Conn) SignedIn() bool {
	return c.sessionID != 0
}

// FarmAttached reports whether the connection holds a farm session.
func (c *Conn) FarmAttached() bool {
	return c.farmSessionID != 0
}

// bind sets the signed-in identity. Both fields must be empty beforehand.
func (c *Conn) bind(userID, sessionID uint, isFarm bool, topic string) {
	c.userID = userID
	c.sessionID = sessionID
	c.isFarm = isFarm
	c.ownTopic = topic
}

// unbind clears the signed-in identity.
func (c *Conn) unbind() {
	c.userID = 0
	c.sessionID = 0
	c.isFarm = false
	c.ownTopic = ""
}

// attachFarm sets the farm session. Requires a signed-in connection with no
// farm attached.
func (c *Conn) attachFarm(sessionID uint) {
	c.farmSessionID = sessionID
}

// detachFarm clears the farm session.
func (c *Conn) detachFarm() {
	c.farmSessionID = 0
}

// queueOut enqueues a direct reply. It blocks until the writer drains the
// queue or the connection closes; replies are never silently dropped.
func (c *Conn) queueOut(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	case <-c.closed:
		return false
	}
}

// Deliver implements hub.Subscriber. It never blocks: a frame that does not
// fit the outbound queue is dropped, matching the best-effort contract of
// the routing fabric.
func (c *Conn) Deliver(topic string, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	case <-c.closed:
		return false
	default:
		metrics.DroppedFramesTotal.WithLabelValues("queue_full").Inc()
		logger.Warn("outbound queue full, frame dropped",
			"conn", c.ID, "topic", topic)
		return false
	}
}

// Close tears down the writer and the underlying socket. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.sock.Close()
	})
}

func (c *Conn) writeLoop() {
	for {
		select {
		case frame := <-c.send:
			if ws, ok := c.sock.(*websocket.Conn); ok {
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				// Transport errors mean the socket is gone; the read
				// loop notices and runs teardown.
				logger.Debug("write failed", "conn", c.ID, "error", err)
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
