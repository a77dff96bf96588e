package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ScreenerView/internal/domain/models"
	xlogger "ScreenerView/pkg/logger"
)

const (
	clientBuffer = 64
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

type client struct {
	conn *websocket.Conn
	out  chan models.Event
	done chan struct{}
}

// Hub pushes screener status events to connected browsers. New clients get
// the most recent event first so the status line is never empty.
type Hub struct {
	log *xlogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    *models.Event
}

func NewHub(l *xlogger.Logger) *Hub {
	return &Hub{log: l, clients: make(map[*client]struct{})}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Notify broadcasts ev. Slow clients drop events rather than block the
// screener.
func (h *Hub) Notify(_ context.Context, ev models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &ev
	for c := range h.clients {
		select {
		case c.out <- ev:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan models.Event, clientBuffer), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	if h.last != nil {
		cl.out <- *h.last
	}
	h.mu.Unlock()
	h.log.Debug("websocket client connected", xlogger.String("remote", c.RealIP()))

	go h.write(cl)
	h.read(cl)

	close(cl.done)
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	h.log.Debug("websocket client disconnected", xlogger.String("remote", c.RealIP()))
	return nil
}

func (h *Hub) write(cl *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case ev := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		case <-cl.done:
			return
		}
	}
}

// read discards inbound frames and returns when the peer goes away.
func (h *Hub) read(cl *client) {
	_ = cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
