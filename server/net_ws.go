package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize  = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// ClientConn wraps the write side of one WebSocket connection behind a
// buffered queue so broadcast fan-out never blocks on a slow consumer.
type ClientConn struct {
	ws      *websocket.Conn
	metrics *Metrics

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, metrics *Metrics) *ClientConn {
	return &ClientConn{
		ws:      ws,
		metrics: metrics,
		send:    make(chan []byte, sendQueueSize),
	}
}

// Enqueue queues an outbound frame. A full queue drops the frame instead of
// blocking: broadcasts are fire-and-forget and stalling the sender's event
// loop is worse than a lost frame.
func (c *ClientConn) Enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		c.metrics.IncSendsDropped()
	}
}

// CloseSend stops the write pump after it drains the queued frames and sends
// a close frame. Safe to call more than once.
func (c *ClientConn) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Close tears the connection down immediately.
func (c *ClientConn) Close() {
	c.CloseSend()
	_ = c.ws.Close()
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings.
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWS authenticates and upgrades one client connection, then hands it to
// a Session. Register it on the mux at /ws.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.authorize(r); err != nil {
		g.metrics.IncAuthRejected()
		Log.Infow("handshake rejected", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}
	g.metrics.IncConnections()

	s := newSession(g, ws)
	go s.conn.writePump()
	go s.readPump()
}
