// Package livereload tells connected browsers to refresh after a rebuild.
//
// Browsers hold a Server-Sent Events connection open on /livereload. Each
// Broadcast sends the fixed ReloadSignal to every connected client, at most
// once, without acknowledgement or retry. Clients that are gone or not
// keeping up are dropped instead of blocking the caller.
package livereload

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/metrics"
)

// ReloadSignal is the event payload sent on every broadcast.
const ReloadSignal = "reload"

// Path is where the event stream is served.
const Path = "/livereload"

// Hub manages live reload clients. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[int]*Subscription
	closed  bool

	heartbeat  time.Duration
	bufferSize int
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithHeartbeat sets the keep-alive comment interval for SSE connections.
func WithHeartbeat(d time.Duration) Option { return func(h *Hub) { h.heartbeat = d } }

// WithRecorder reports client counts and broadcasts.
func WithRecorder(r metrics.Recorder) Option { return func(h *Hub) { h.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(h *Hub) { h.logger = l } }

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    map[int]*Subscription{},
		heartbeat:  30 * time.Second,
		bufferSize: 8,
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is one connected client.
type Subscription struct {
	id   int
	ch   chan string
	done chan struct{}
	once sync.Once
}

// C delivers broadcast signals.
func (s *Subscription) C() <-chan string { return s.ch }

// Done is closed when the client is disconnected or dropped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close marks the client as disconnected. The hub forgets it on the next
// broadcast (or immediately when closed through Unsubscribe).
func (s *Subscription) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) disconnected() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Subscribe registers a new client. It returns nil after Shutdown.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	sub := &Subscription{id: h.nextID, ch: make(chan string, h.bufferSize), done: make(chan struct{})}
	h.nextID++
	h.clients[sub.id] = sub
	n := len(h.clients)
	h.mu.Unlock()

	h.recorder.SetLiveReloadClients(n)
	return sub
}

// Unsubscribe closes sub and removes it from the hub.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Close()
	h.remove(sub.id)
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	_, ok := h.clients[id]
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetLiveReloadClients(n)
	}
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ReloadSignal to every connected client and returns how
// many received it. Disconnected clients are removed. A client whose buffer
// is full already has a reload queued, so it is skipped and kept. It never
// blocks.
func (h *Hub) Broadcast() int {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0
	}
	snapshot := make([]*Subscription, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	delivered, dropped, backlogged := 0, 0, 0
	for _, c := range snapshot {
		if c.disconnected() {
			dropped++
			h.remove(c.id)
			continue
		}
		select {
		case c.ch <- ReloadSignal:
			delivered++
		default:
			backlogged++
		}
	}
	h.recorder.IncLiveReloadBroadcast()
	h.logger.Debug("Live reload broadcast", logfields.Clients(delivered),
		slog.Int("dropped", dropped), slog.Int("backlogged", backlogged))
	return delivered
}

// Shutdown disconnects all clients and rejects future subscriptions.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*Subscription{}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.recorder.SetLiveReloadClients(0)
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	sub := h.Subscribe()
	if sub == nil {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	write := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			h.logger.Debug("Live reload write failed", logfields.Error(err))
			return false
		}
		if err := bw.Flush(); err != nil {
			h.logger.Debug("Live reload flush failed", logfields.Error(err))
			return false
		}
		flusher.Flush()
		return true
	}
	if !write(": connected\n\n") {
		return
	}

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case <-hb.C:
			if !write(": ping\n\n") {
				return
			}
		case msg := <-sub.C():
			if !write("data: " + msg + "\n\n") {
				return
			}
		}
	}
}
