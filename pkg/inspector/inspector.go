package inspector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/pulse/pkg/pulse"
)

// Frame is the JSON message sent to /events clients for every dispatch.
type Frame struct {
	Event    string    `json:"event"`
	Payload  any       `json:"payload"`
	Handlers int       `json:"handlers"`
	Failures int       `json:"failures"`
	At       time.Time `json:"at"`
}

// HandlerCount is the /handlers response body.
type HandlerCount struct {
	Event    string `json:"event"`
	Handlers int    `json:"handlers"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Inspector is an http.Handler exposing a bus.
type Inspector struct {
	bus      *pulse.Bus
	router   chi.Router
	upgrader websocket.Upgrader
	config   config
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	untap   func()

	dropped atomic.Uint64
}

// New creates an inspector for bus. A nil bus inspects pulse.Default().
func New(bus *pulse.Bus, opts ...Option) *Inspector {
	if bus == nil {
		bus = pulse.Default()
	}
	cfg := newConfig(opts)

	ins := &Inspector{
		bus:     bus,
		config:  cfg,
		logger:  cfg.logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.checkOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", ins.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	r.Get("/handlers", ins.handleHandlers)
	r.Get("/events", ins.handleEvents)
	ins.router = r

	ins.untap = bus.Tap(ins.broadcast)
	return ins
}

// ServeHTTP implements http.Handler.
func (ins *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ins.router.ServeHTTP(w, r)
}

// Clients returns the number of connected /events clients.
func (ins *Inspector) Clients() int {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return len(ins.clients)
}

// Dropped returns the number of frames dropped because a client was slow.
func (ins *Inspector) Dropped() uint64 {
	return ins.dropped.Load()
}

// Close removes the bus tap and disconnects every client. It is safe to
// call more than once.
func (ins *Inspector) Close() error {
	ins.mu.Lock()
	if ins.closed {
		ins.mu.Unlock()
		return nil
	}
	ins.closed = true
	for c := range ins.clients {
		c.close()
		delete(ins.clients, c)
	}
	ins.mu.Unlock()

	ins.untap()
	return nil
}

func (ins *Inspector) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (ins *Inspector) handleHandlers(w http.ResponseWriter, r *http.Request) {
	event := r.URL.Query().Get("event")
	if event == "" {
		http.Error(w, "missing event parameter", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(HandlerCount{Event: event, Handlers: ins.bus.Handlers(event)}); err != nil {
		ins.logger.Error("handlers response failed", "error", err)
	}
}

func (ins *Inspector) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := ins.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ins.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, ins.config.bufferSize)}
	if !ins.register(c) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "inspector closed"),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}
	ins.logger.Debug("inspector client connected", "remote", r.RemoteAddr)

	go ins.writeLoop(c)
	ins.readLoop(c)
}

func (ins *Inspector) register(c *client) bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if ins.closed {
		return false
	}
	ins.clients[c] = struct{}{}
	return true
}

func (ins *Inspector) unregister(c *client) {
	ins.mu.Lock()
	delete(ins.clients, c)
	c.close()
	ins.mu.Unlock()
}

// readLoop discards client messages and returns when the connection ends.
func (ins *Inspector) readLoop(c *client) {
	defer ins.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				ins.logger.Warn("inspector read error", "error", err)
			}
			return
		}
	}
}

func (ins *Inspector) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(ins.config.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			ins.logger.Debug("inspector write failed", "error", err)
			ins.unregister(c)
			return
		}
	}
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

// broadcast is the bus tap. It never blocks on a client.
func (ins *Inspector) broadcast(d pulse.Dispatch) {
	msg := encodeFrame(d)

	ins.mu.Lock()
	defer ins.mu.Unlock()
	for c := range ins.clients {
		select {
		case c.send <- msg:
		default:
			ins.dropped.Add(1)
			ins.logger.Debug("inspector client slow, frame dropped", "event", d.Event)
		}
	}
}

func encodeFrame(d pulse.Dispatch) []byte {
	f := Frame{
		Event:    d.Event,
		Payload:  d.Payload,
		Handlers: d.Handlers,
		Failures: d.Failures,
		At:       d.At,
	}
	msg, err := json.Marshal(f)
	if err != nil {
		f.Payload = fmt.Sprintf("%v", d.Payload)
		msg, _ = json.Marshal(f)
	}
	return msg
}
