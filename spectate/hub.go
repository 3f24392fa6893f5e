// Package spectate publishes game snapshots to read-only watchers over HTTP
// and websockets.
package spectate

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"snake-grid/game"
	"snake-grid/game/manager"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	URI_WATCH = "/watch"
	URI_STATE = "/state"
	URI_STATS = "/stats"

	writeTimeout = 200 * time.Millisecond
	sendBuffer   = 8
)

type watcher struct {
	con  *websocket.Conn
	send chan []byte
}

// Hub is a render sink that fans snapshots out to every connected watcher.
// Slow watchers miss frames instead of slowing the game down.
type Hub struct {
	router   *way.Router
	upgrader *websocket.Upgrader
	stats    func() manager.GameStats

	mutex    sync.RWMutex
	latest   []byte
	watchers map[*watcher]struct{}
}

func NewHub(stats func() manager.GameStats) *Hub {
	h := &Hub{
		router: way.NewRouter(),
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		stats:    stats,
		watchers: make(map[*watcher]struct{}),
	}
	h.routes()
	return h
}

func (h *Hub) routes() {
	h.router.HandleFunc("GET", URI_STATE, h.handleState())
	h.router.HandleFunc("GET", URI_WATCH, h.handleWatch())
	h.router.HandleFunc("GET", URI_STATS, h.handleStats())
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Render implements session.Sink.
func (h *Hub) Render(state game.State) {
	data, err := json.Marshal(state)
	if err != nil {
		log.WithError(err).Error("spectate: encode state")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.latest = data
	for wt := range h.watchers {
		select {
		case wt.send <- data:
		default:
		}
	}
}

// Watchers is the number of connected websocket clients.
func (h *Hub) Watchers() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.watchers)
}

func (h *Hub) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mutex.RLock()
		data := h.latest
		h.mutex.RUnlock()

		if data == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(data); err != nil {
			log.WithError(err).Warn("spectate: write state")
		}
	}
}

func (h *Hub) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.stats == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.stats()); err != nil {
			log.WithError(err).Warn("spectate: write stats")
		}
	}
}

func (h *Hub) handleWatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		con, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("spectate: websocket upgrade")
			return
		}

		wt := &watcher{con: con, send: make(chan []byte, sendBuffer)}
		h.register(wt)
		log.WithField("remote", r.RemoteAddr).Info("spectate: watcher connected")

		go h.writeLoop(wt)
		h.readLoop(wt)

		h.unregister(wt)
		log.WithField("remote", r.RemoteAddr).Info("spectate: watcher left")
	}
}

func (h *Hub) register(wt *watcher) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.watchers[wt] = struct{}{}
	if h.latest != nil {
		wt.send <- h.latest
	}
}

func (h *Hub) unregister(wt *watcher) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.watchers[wt]; ok {
		delete(h.watchers, wt)
		close(wt.send)
	}
}

// readLoop discards anything the watcher sends and returns once it goes away.
func (h *Hub) readLoop(wt *watcher) {
	for {
		if _, _, err := wt.con.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(wt *watcher) {
	defer wt.con.Close()
	for data := range wt.send {
		wt.con.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := wt.con.WriteMessage(websocket.TextMessage, data); err != nil {
			log.WithError(err).Debug("spectate: write")
			return
		}
	}
	wt.con.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

// ListenAndServe serves the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h}

	errs := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("spectate: listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrapf(err, "spectate: listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "spectate: shutdown")
		}
		return nil
	}
}
