// Package notify pushes update reports to websocket subscribers while
// `pugsite watch` runs.
//
// A single hub goroutine owns client registration, removal and fan-out.
// Each client has a buffered send queue drained by its own writer; a client
// whose queue is full is dropped rather than slowing the others down.
// Close handshakes run on their own goroutines so an unresponsive peer
// never stalls the hub.
package notify

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pugsite/pugsite/internal/logging"
)

const (
	// Path is where the hub is mounted.
	Path = "/ws"

	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// OriginValidator decides whether a browser origin may subscribe.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// LoopbackOrigins accepts origins served from localhost.
type LoopbackOrigins struct{}

// IsAllowedOrigin implements OriginValidator.
func (LoopbackOrigins) IsAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Event is the envelope written to subscribers.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected subscriber.
type Hub struct {
	clients      map[*client]struct{}
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	origins OriginValidator
	logger  logging.Logger

	// closing tracks connections whose close handshake is in flight.
	closing map[*client]struct{}
	closeMu sync.Mutex
	closers sync.WaitGroup

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewHub creates a hub and starts its goroutine. A nil validator selects
// LoopbackOrigins.
func NewHub(origins OriginValidator, logger logging.Logger) *Hub {
	if origins == nil {
		origins = LoopbackOrigins{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client, 8),
		closing:    make(map[*client]struct{}),
		origins:    origins,
		logger:     logger.WithComponent("notify"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if origin := r.Header.Get("Origin"); origin != "" && !h.origins.IsAllowedOrigin(origin) {
		h.logger.Warn(r.Context(), nil, "Rejected websocket origin", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Origins were checked above.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "Websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	h.serveClient(c)
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clientsMutex.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "Subscriber connected", "clients", n)

		case c := <-h.unregister:
			h.remove(c, websocket.StatusNormalClosure, "")

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Too slow; dropped below without blocking the fan-out.
					go func(c *client) {
						select {
						case h.unregister <- c:
						case <-h.ctx.Done():
						}
					}(c)
				}
			}
			h.clientsMutex.RUnlock()

		case <-h.ctx.Done():
			h.clientsMutex.RLock()
			clients := make([]*client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.clientsMutex.RUnlock()
			for _, c := range clients {
				h.remove(c, websocket.StatusGoingAway, "server shutting down")
			}
			return
		}
	}
}

// remove runs on the hub goroutine only, so send is closed exactly once.
func (h *Hub) remove(c *client, code websocket.StatusCode, reason string) {
	h.clientsMutex.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.clientsMutex.Unlock()
	if !ok {
		return
	}
	close(c.send)
	h.closeConn(c, code, reason)
	h.logger.Debug(h.ctx, "Subscriber disconnected", "clients", n)
}

// closeConn performs the close handshake off the hub goroutine.
func (h *Hub) closeConn(c *client, code websocket.StatusCode, reason string) {
	h.closeMu.Lock()
	h.closing[c] = struct{}{}
	h.closeMu.Unlock()

	h.closers.Add(1)
	go func() {
		defer h.closers.Done()
		_ = c.conn.Close(code, reason)
		h.closeMu.Lock()
		delete(h.closing, c)
		h.closeMu.Unlock()
	}()
}

// serveClient writes queued messages until the peer goes away or the hub stops.
func (h *Hub) serveClient(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
	}()

	// Subscribers only listen. The read side is not tied to the hub context
	// so that shutdown can finish the close handshake.
	readCtx := c.conn.CloseRead(context.Background())
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		case <-readCtx.Done():
			return
		}
	}
}

// Publish sends an event with payload v to every subscriber. Events are
// dropped when the hub is stopped or its queue is full.
func (h *Hub) Publish(ctx context.Context, eventType string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
		h.logger.Debug(ctx, "Hub stopped, dropping event", "type", eventType)
	default:
		h.logger.Warn(ctx, nil, "Broadcast queue full, dropping event", "type", eventType)
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown stops the hub and sends every subscriber a going-away close
// frame. It returns once the hub goroutine has exited; close handshakes
// finish in the background. Use Wait to block until they are done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(h.cancel)
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every pending close handshake has finished. When ctx
// expires first, the remaining connections are closed without a handshake.
func (h *Hub) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		h.closers.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		h.closeMu.Lock()
		for c := range h.closing {
			_ = c.conn.CloseNow()
		}
		h.closeMu.Unlock()
		<-finished
		return ctx.Err()
	}
}
