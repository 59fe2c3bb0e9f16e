package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

const (
	liveWriteTimeout = 5 * time.Second
	livePingInterval = 30 * time.Second
	liveReadTimeout  = 60 * time.Second
	liveSendBuffer   = 8
)

// LiveMessage is a frame sent to live-feed clients
type LiveMessage struct {
	Type     string          `json:"type"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// SnapshotReader reads the live snapshot
type SnapshotReader interface {
	Snapshot() models.Snapshot
	HasSnapshot() bool
}

// liveClient is one websocket connection. Its writer goroutine is the only
// writer on conn.
type liveClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// enqueue queues a frame without blocking and reports whether it fit
func (c *liveClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// LiveHub pushes every applied snapshot to connected websocket clients
type LiveHub struct {
	source   SnapshotReader
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*liveClient
}

// NewLiveHub creates a hub. Browser origins must match allowedOrigins or the request host.
func NewLiveHub(source SnapshotReader, allowedOrigins []string, metrics *observability.Metrics) *LiveHub {
	h := &LiveHub{
		source:  source,
		metrics: metrics,
		clients: make(map[*websocket.Conn]*liveClient),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		EnableCompression: true,
		CheckOrigin:       originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// ServeHTTP upgrades the request and streams snapshots until the client goes away
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_ip", r.RemoteAddr).Msg("Live feed upgrade failed")
		return
	}

	client := &liveClient{
		conn: conn,
		send: make(chan []byte, liveSendBuffer),
		done: make(chan struct{}),
	}

	// the current snapshot is queued before any broadcast can reach the client
	h.clientsMu.Lock()
	h.clients[conn] = client
	count := len(h.clients)
	if h.source.HasSnapshot() {
		if data, err := encodeSnapshot(h.source.Snapshot()); err == nil {
			client.enqueue(data)
		}
	}
	h.clientsMu.Unlock()
	h.metrics.LiveClientConnected()
	log.Info().Str("remote_ip", r.RemoteAddr).Int("clients", count).Msg("Live feed client connected")

	go h.writeLoop(client)
	h.readLoop(client)
}

// writeLoop drains the client's queue and keeps the connection alive with pings
func (h *LiveHub) writeLoop(c *liveClient) {
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Msg("Failed to send live snapshot, dropping client")
				h.remove(c.conn)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				h.remove(c.conn)
				return
			}
		}
	}
}

// readLoop discards client frames until the connection fails
func (h *LiveHub) readLoop(c *liveClient) {
	defer h.remove(c.conn)

	_ = c.conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Live feed read error")
			}
			return
		}
	}
}

// Broadcast queues snap for every client without blocking. Clients whose
// queue is full are dropped.
func (h *LiveHub) Broadcast(snap models.Snapshot) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode live snapshot")
		return
	}

	var slow []*websocket.Conn
	h.clientsMu.RLock()
	for conn, client := range h.clients {
		if !client.enqueue(data) {
			slow = append(slow, conn)
		}
	}
	h.clientsMu.RUnlock()

	for _, conn := range slow {
		log.Warn().Str("remote_ip", conn.RemoteAddr().String()).Msg("Live feed client too slow, dropping")
		h.remove(conn)
	}
}

// ClientCount returns the number of connected clients
func (h *LiveHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *LiveHub) Close() {
	h.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clientsMu.RUnlock()

	for _, conn := range conns {
		h.remove(conn)
	}
}

func (h *LiveHub) remove(conn *websocket.Conn) {
	h.clientsMu.Lock()
	client, ok := h.clients[conn]
	delete(h.clients, conn)
	count := len(h.clients)
	h.clientsMu.Unlock()

	if !ok {
		return
	}
	close(client.done)
	conn.Close()
	h.metrics.LiveClientDisconnected()
	log.Info().Int("clients", count).Msg("Live feed client disconnected")
}

func encodeSnapshot(snap models.Snapshot) ([]byte, error) {
	return json.Marshal(LiveMessage{Type: "snapshot", Snapshot: snap})
}
