package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/funtimes-boogie/internal/diagnostics"
	"github.com/coreman2200/funtimes-boogie/internal/game"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

const (
	// recentDiags is how many diagnostics a new /diag client is replayed.
	recentDiags = 32
	// sendBuffer is how many messages a client may fall behind before new
	// ones are dropped for it.
	sendBuffer = 64
)

// Hub serves the game state to browsers: snapshots and readings on /ws,
// diagnostics on /diag, stick control on /control and counters on /health.
type Hub struct {
	mu          sync.Mutex
	snap        game.Snapshot
	reading     stick.Reading
	haveReading bool
	diags       []diag.Diagnostic
	startTime   time.Time
	clients     map[*client]bool
	diagClients map[*client]bool

	// Stick, when set, is moved by /control messages.
	Stick *stick.Virtual
	// Counters are reported by /health under their names.
	Counters map[string]func() uint64
}

func NewHub() *Hub {
	return &Hub{
		startTime:   time.Now(),
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		Counters:    map[string]func() uint64{},
	}
}

type message struct {
	Type     string         `json:"type"`
	T        int64          `json:"t"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
	Reading  *stick.Reading `json:"reading,omitempty"`
}

// PublishSnapshot records s and sends it to every /ws client.
func (h *Hub) PublishSnapshot(s game.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = s
	h.broadcast(h.clients, message{Type: "snapshot", T: time.Now().UnixNano(), Snapshot: &s})
}

// PublishReading records r and sends it to every /ws client.
func (h *Hub) PublishReading(r stick.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reading, h.haveReading = r, true
	h.broadcast(h.clients, message{Type: "reading", T: time.Now().UnixNano(), Reading: &r})
}

// Push implements diagnostics.Sink.
func (h *Hub) Push(d diag.Diagnostic) {
	if d.At.IsZero() {
		d.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.diags = append(h.diags, d)
	if len(h.diags) > recentDiags {
		h.diags = h.diags[len(h.diags)-recentDiags:]
	}
	h.broadcast(h.diagClients, d)
}

// Recent returns the retained diagnostics, oldest first.
func (h *Hub) Recent() []diag.Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]diag.Diagnostic(nil), h.diags...)
}

// client is one websocket peer. Its writer goroutine owns the socket's
// write side, so a slow peer never holds up the publisher.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer)}
}

// enqueue hands b to the writer without blocking; a full queue drops it.
func (c *client) enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		log.Debug().Msg("telemetry client behind; message dropped")
	}
}

func (c *client) writeLoop() {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("telemetry write")
			c.conn.Close()
			// keep draining until the reader unregisters us
			for range c.send {
			}
			return
		}
	}
}

// broadcast queues v for every client in set. Must be called with h.mu held.
func (h *Hub) broadcast(set map[*client]bool, v any) {
	if len(set) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("telemetry marshal")
		return
	}
	for c := range set {
		c.enqueue(b)
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// serve starts c's writer and keeps reading until the peer goes away, then
// removes c from set.
func (h *Hub) serve(c *client, set map[*client]bool) {
	go c.writeLoop()
	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, c)
			close(c.send)
			h.mu.Unlock()
			c.conn.Close()
		}()
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	h.mu.Lock()
	snap := h.snap
	first := map[*client]bool{c: true}
	h.broadcast(first, message{Type: "snapshot", T: time.Now().UnixNano(), Snapshot: &snap})
	if h.haveReading {
		rd := h.reading
		h.broadcast(first, message{Type: "reading", T: time.Now().UnixNano(), Reading: &rd})
	}
	h.clients[c] = true
	h.mu.Unlock()
	h.serve(c, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	h.mu.Lock()
	first := map[*client]bool{c: true}
	for _, d := range h.diags {
		h.broadcast(first, d)
	}
	h.diagClients[c] = true
	h.mu.Unlock()
	h.serve(c, h.diagClients)
}

// Control is a /control message: a stick position in percent.
type Control struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			h.Push(diag.Diagnostic{Severity: diag.Warn, Code: "CONTROL.BAD", Summary: "Unreadable control message", Detail: err.Error()})
			continue
		}
		h.applyControl(msg)
		h.mu.Lock()
		snap := h.snap
		h.mu.Unlock()
		b, _ := json.Marshal(message{Type: "snapshot", T: time.Now().UnixNano(), Snapshot: &snap})
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (h *Hub) applyControl(msg Control) {
	if h.Stick == nil {
		h.Push(diag.Diagnostic{
			Severity: diag.Warn, Code: "CONTROL.NO_STICK", Summary: "Stick is not simulated",
			SuggestedFixes: []string{"run with -stick sim to steer from the browser"},
		})
		return
	}
	x, y := 50.0, 50.0
	if msg.X != nil {
		x = clamp(*msg.X, 0, 100)
	}
	if msg.Y != nil {
		y = clamp(*msg.Y, 0, 100)
	}
	h.Stick.SetPercent(x, y)
	log.Debug().Float64("x", x).Float64("y", y).Msg("control")
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := map[string]any{
		"uptime_s": time.Since(h.startTime).Seconds(),
		"state":    h.snap.State,
		"outcome":  h.snap.Outcome,
		"round":    h.snap.Round,
		"clients":  len(h.clients),
	}
	h.mu.Unlock()
	for name, f := range h.Counters {
		resp[name] = f()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Handler routes the hub's endpoints.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleStateWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/control", h.HandleControlWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves the hub on addr until ctx ends.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	log.Info().Str("addr", addr).Msg("telemetry listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
