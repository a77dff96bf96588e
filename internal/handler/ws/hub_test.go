package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScreenerView/internal/domain/models"
	xlogger "ScreenerView/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev models.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubBroadcasts(t *testing.T) {
	hub := NewHub(xlogger.Nop())
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	assert.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	ev := models.Event{Type: models.EventLoaded, Message: "Loaded 3 tickers", Tickers: 3}
	require.NoError(t, hub.Notify(context.Background(), ev))

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEvent(t, conn)
		assert.Equal(t, models.EventLoaded, got.Type)
		assert.Equal(t, "Loaded 3 tickers", got.Message)
		assert.Equal(t, 3, got.Tickers)
	}
}

func TestHubGreetsWithLastEvent(t *testing.T) {
	hub := NewHub(xlogger.Nop())
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	_ = hub.Notify(context.Background(), models.Event{Type: models.EventLoading, Message: "Loading CSV..."})
	_ = hub.Notify(context.Background(), models.Event{Type: models.EventFilterChanged, Message: "Filter: ANY — 2 tickers", Tickers: 2})

	got := readEvent(t, dial(t, srv))
	assert.Equal(t, models.EventFilterChanged, got.Type)
	assert.Equal(t, 2, got.Tickers)
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub(xlogger.Nop())
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn := dial(t, srv)
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
