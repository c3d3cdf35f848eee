package broadcaster

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Broadcaster, string) {
	t.Helper()

	b := New(zap.NewNop())
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.Serve(conn)
	}))
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})

	return b, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func connect(t *testing.T, b *Broadcaster, url string, n int) []*websocket.Conn {
	t.Helper()

	conns := make([]*websocket.Conn, 0, n)
	for range n {
		conns = append(conns, dial(t, url))
	}
	require.Eventually(t, func() bool { return b.Len() == n }, time.Second, 10*time.Millisecond)

	return conns
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	return string(data)
}

func TestBroadcaster_NotifyAll(t *testing.T) {
	b, url := newTestServer(t)
	conns := connect(t, b, url, 3)

	sent := testutil.ToFloat64(messagesSent)

	require.Equal(t, 3, b.Notify(ReloadMessage))
	for _, conn := range conns {
		assert.Equal(t, ReloadMessage, readText(t, conn))
	}
	assert.InDelta(t, sent+3, testutil.ToFloat64(messagesSent), 0)
}

func TestBroadcaster_NotifyEmpty(t *testing.T) {
	b, _ := newTestServer(t)

	require.Equal(t, 0, b.Notify(ReloadMessage))
}

func TestBroadcaster_ClientLeft(t *testing.T) {
	b, url := newTestServer(t)
	conns := connect(t, b, url, 2)

	require.NoError(t, conns[0].Close())
	require.Eventually(t, func() bool { return b.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.Equal(t, 1, b.Notify(ReloadMessage))
	assert.Equal(t, ReloadMessage, readText(t, conns[1]))
}

func TestBroadcaster_ClientDroppedBeforeNotify(t *testing.T) {
	b, url := newTestServer(t)
	conns := connect(t, b, url, 3)

	require.NoError(t, conns[0].UnderlyingConn().Close())

	delivered := b.Notify(ReloadMessage)
	assert.GreaterOrEqual(t, delivered, 2)
	assert.Equal(t, ReloadMessage, readText(t, conns[1]))
	assert.Equal(t, ReloadMessage, readText(t, conns[2]))

	require.Eventually(t, func() bool { return b.Len() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, b.Notify(ReloadMessage))
}

func TestBroadcaster_Close(t *testing.T) {
	b, url := newTestServer(t)
	conns := connect(t, b, url, 2)

	b.Close()
	require.Equal(t, 0, b.Len())

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	}

	late := dial(t, url)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := late.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, 0, b.Len())
}
