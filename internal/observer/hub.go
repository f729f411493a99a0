// Package observer streams world snapshots to read-only HTTP and websocket
// clients.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

const (
	subscriberBuffer = 4
	writeTimeout     = 5 * time.Second
	shutdownTimeout  = 2 * time.Second
)

// Hub fans encoded snapshots out to websocket subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the frame.
type Hub struct {
	log *slog.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu     sync.Mutex
	latest []byte
	subs   map[uint64]chan []byte
}

// NewHub creates an empty hub. A nil logger discards output.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: make(map[uint64]chan []byte),
	}
}

// Publish encodes snap once and offers it to every subscriber.
func (h *Hub) Publish(snap sim.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = b
	for _, ch := range h.subs {
		select {
		case ch <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns the number of connected websocket clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many frames were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) subscribe() (uint64, chan []byte) {
	id := h.nextID.Add(1)
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[id] = ch
	if h.latest != nil {
		ch <- h.latest
	}
	return id, ch
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Handler serves /snapshot and /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", h.snapshotHandler)
	mux.HandleFunc("/ws", h.wsHandler)
	return mux
}

func (h *Hub) snapshotHandler(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.mu.Lock()
	b := h.latest
	h.mu.Unlock()
	if b == nil {
		http.Error(rw, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_, _ = rw.Write(b)
}

func (h *Hub) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, frames := h.subscribe()
	defer h.unsubscribe(id)
	h.log.Info("observer connected", "id", id, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader goroutine: clients are read-only, so anything they send is
	// discarded; a read error means the connection is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			h.log.Info("observer disconnected", "id", id)
			return
		case b := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.log.Warn("observer write failed", "id", id, "err", err)
				return
			}
		}
	}
}

// ListenAndServe serves the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		h.log.Info("observer listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("observer shutdown: %w", err)
		}
		return nil
	}
}
