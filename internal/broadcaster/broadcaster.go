package broadcaster

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const ReloadMessage = "reload"

const (
	writeTimeout = 10 * time.Second
	closeTimeout = time.Second
)

type client struct {
	id   uuid.UUID
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (c *client) send(message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// Broadcaster keeps the set of open client connections and fans messages out
// to them.
type Broadcaster struct {
	logger *zap.Logger

	clients map[uuid.UUID]*client
	closed  bool
	mu      sync.RWMutex
}

func New(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.Named("broadcaster"),

		clients: make(map[uuid.UUID]*client),
		closed:  false,
		mu:      sync.RWMutex{},
	}
}

// Serve registers conn and blocks until the client goes away. Anything the
// client sends is discarded.
func (b *Broadcaster) Serve(conn *websocket.Conn) {
	c := &client{
		id:   uuid.New(),
		conn: conn,
	}

	if !b.register(c) {
		_ = conn.Close()
		return
	}
	defer b.unregister(c)

	b.logger.Debug("client connected", zap.Stringer("id", c.id), zap.Stringer("remote", conn.RemoteAddr()))

	for {
		if _, _, err := conn.NextReader(); err != nil {
			b.logger.Debug("client disconnected", zap.Stringer("id", c.id), zap.Error(err))
			return
		}
	}
}

// Notify sends message to every connected client and returns the number of
// successful deliveries. A client that fails to receive it is disconnected.
func (b *Broadcaster) Notify(message string) int {
	b.mu.RLock()
	clients := lo.Values(b.clients)
	b.mu.RUnlock()

	var (
		wg        sync.WaitGroup
		delivered = make([]bool, len(clients))
	)
	for i, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := c.send(message); err != nil {
				sendFailures.Inc()
				b.logger.Debug("can't send message", zap.Stringer("id", c.id), zap.Error(err))
				b.unregister(c)
				return
			}

			messagesSent.Inc()
			delivered[i] = true
		}()
	}
	wg.Wait()

	return lo.Count(delivered, true)
}

// Len returns the number of connected clients.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.clients)
}

// Close disconnects every client and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := lo.Values(b.clients)
	b.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down")
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		b.unregister(c)
	}
}

func (b *Broadcaster) register(c *client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	b.clients[c.id] = c
	connectedClients.Inc()

	return true
}

func (b *Broadcaster) unregister(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c.id]
	delete(b.clients, c.id)
	b.mu.Unlock()

	if !ok {
		return
	}

	connectedClients.Dec()
	_ = c.conn.Close()
}
