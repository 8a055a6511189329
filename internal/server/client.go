// Package server manages individual client connections, handling the
// read/write pumps and lifecycle control for each websocket.
package server

import (
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write; a socket that cannot accept a
	// frame within it is treated as failed.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before its reads
	// time out; pings go out early enough to refresh it.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// wsConn is the slice of *websocket.Conn the client code relies on, kept as
// an interface so tests can substitute in-memory connections.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is the hub's handle to one connected websocket. Identity is the
// handle itself; the uuid only serves the logs, where remote addresses can
// repeat across reconnects.
type Client struct {
	conn   wsConn
	send   chan []byte
	hub    *Hub
	id     uuid.UUID
	addr   string
	closed bool
}

// NewClient wraps a websocket connection for the given hub. The send channel
// is buffered so fan-out never blocks on a slow socket; the write pump
// drains it.
func NewClient(conn wsConn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn: conn,
		send: make(chan []byte, cfg.SendBufferSize),
		hub:  hub,
		id:   uuid.New(),
		addr: addr,
	}
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// handleReadError classifies a read failure for the logs. Every read error
// ends the stream; the distinction is only how loudly it is reported.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Frame from %s exceeded the configured read limit", c.addr)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Printf("Client %s connection closed: %v", c.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// processFrame decodes one inbound frame and hands it to the hub. Malformed
// frames are dropped without affecting the connection.
func (c *Client) processFrame(raw []byte) {
	event, err := decodeClientEvent(raw)
	if err != nil {
		log.Printf("Dropping malformed event from %s: %v", c.addr, err)
		return
	}

	select {
	case c.hub.inbound <- inboundEvent{client: c, event: event}:
	case <-c.hub.ctx.Done():
	}
}

// readPump reads frames until the stream ends, forwarding decoded events to
// the hub. Stream end, for any reason, is the disconnect path.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection in readPump: %v", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			break
		}
		c.processFrame(raw)
	}
}

// writePump drains the send channel onto the socket, one frame per event,
// and keeps the connection alive with periodic pings. It exits when the send
// channel closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeFrame(payload, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeFrame writes one outbound event, or the close frame when the send
// channel has been closed by the hub.
func (c *Client) writeFrame(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("Error writing message to %s: %v", c.addr, err)
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Printf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}

// isExpectedCloseError reports whether an error is the normal noise of a
// connection going away.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
