// Package ws adapts a gorilla WebSocket connection to the session transport.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/models"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	// inboxSize bounds zone requests queued while a stream is running.
	inboxSize = 8
)

var ErrClosed = errors.New("websocket closed")

// NewUpgrader accepts connections from the allowed origins. Requests without
// an Origin header (non-browser clients) are accepted.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 256 * 1024, // base64 encoded JPEG frames
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// Conn is one client connection. A read pump delivers text messages on
// Messages and closes Done when the peer goes away; writes are serialized.
type Conn struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	messages     chan []byte
	done         chan struct{}
	doneOnce     sync.Once
	closeOnce    sync.Once
	log          zerolog.Logger
}

func NewConn(c *websocket.Conn, readLimit int64, writeTimeout time.Duration, logger zerolog.Logger) *Conn {
	wc := &Conn{
		conn:         c,
		writeTimeout: writeTimeout,
		messages:     make(chan []byte, inboxSize),
		done:         make(chan struct{}),
		log:          logger,
	}
	c.SetReadLimit(readLimit)
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	go wc.readPump()
	go wc.pingLoop()
	return wc
}

func (c *Conn) Messages() <-chan []byte { return c.messages }
func (c *Conn) Done() <-chan struct{}   { return c.done }

func (c *Conn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Conn) SendText(ctx context.Context, msg string) error {
	return c.write(ctx, func() error { return c.conn.WriteMessage(websocket.TextMessage, []byte(msg)) })
}

func (c *Conn) SendFrame(ctx context.Context, msg models.FrameMessage) error {
	return c.write(ctx, func() error { return c.conn.WriteJSON(msg) })
}

// Close sends a close frame and releases the socket. Safe to call twice.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.markDone()
		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Open() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := fn(); err != nil {
		c.markDone()
		return err
	}
	return nil
}

func (c *Conn) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Conn) readPump() {
	defer close(c.messages)
	defer c.markDone()

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug().Err(err).Msg("WebSocket read ended")
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		select {
		case c.messages <- data:
		default:
			c.log.Warn().Int("queued", inboxSize).Msg("Dropping zone request, inbox full")
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.markDone()
				return
			}
		}
	}
}
