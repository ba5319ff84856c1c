package net

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"MapSketch/internal/state"
)

// WSPath is where the host serves the session websocket.
const WSPath = "/ws"

const writeWait = 5 * time.Second

// Peer is one end of a session websocket.
type Peer struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func newPeer(conn *websocket.Conn) *Peer {
	return &Peer{conn: conn}
}

// RemoteAddr is the address of the other end.
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// LocalAddr is this end's address. Joining clients use it as their owner id.
func (p *Peer) LocalAddr() string {
	return p.conn.LocalAddr().String()
}

// Send writes one op. Safe for concurrent use.
func (p *Peer) Send(op state.Op) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	return errors.Wrapf(p.conn.WriteJSON(op), "send %s to %s", op.Type, p.RemoteAddr())
}

// Listen reads ops until the connection fails or is closed, passing each to handle.
func (p *Peer) Listen(handle func(state.Op)) error {
	for {
		var op state.Op
		if err := p.conn.ReadJSON(&op); err != nil {
			return err
		}
		handle(op)
	}
}

// Close closes the connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}

// Dial joins a hosted session at a ws:// URL.
func Dial(ctx context.Context, url string) (*Peer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return newPeer(conn), nil
}

// Hub is run by the host. It accepts peers, hands every received op to
// OnOp and relays it to every other peer. A peer may only act for itself:
// ops whose owner is not the peer's address are dropped.
type Hub struct {
	// OnOp is called for each op a peer sends, before it is relayed.
	OnOp func(op state.Op, from *Peer)
	// Snapshot returns the ops a newly joined peer needs to catch up.
	Snapshot func() []state.Op

	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[*Peer]struct{}
}

// NewHub returns a hub with no peers.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			// LAN sessions are joined by link, not from a browser page.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: make(map[*Peer]struct{}),
	}
}

func (h *Hub) add(p *Peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
	h.log.WithField("peer", p.RemoteAddr()).Info("peer connected")
}

func (h *Hub) remove(p *Peer) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
	h.log.WithField("peer", p.RemoteAddr()).Info("peer disconnected")
}

// Len returns the number of connected peers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast sends op to every peer except exclude, which may be nil.
func (h *Hub) Broadcast(op state.Op, exclude *Peer) {
	h.mu.RLock()
	targets := make([]*Peer, 0, len(h.peers))
	for p := range h.peers {
		if p != exclude {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range targets {
		if err := p.Send(op); err != nil {
			h.log.WithError(err).WithField("peer", p.RemoteAddr()).Warn("broadcast failed")
		}
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	p := newPeer(conn)
	defer p.Close()

	// register before the snapshot so nothing broadcast in between is lost;
	// receivers drop the duplicates by shape id
	h.add(p)
	defer h.remove(p)

	if h.Snapshot != nil {
		for _, op := range h.Snapshot() {
			if err := p.Send(op); err != nil {
				h.log.WithError(err).Warn("snapshot send failed")
				return
			}
		}
	}

	err = p.Listen(func(op state.Op) {
		fields := logrus.Fields{"peer": p.RemoteAddr(), "type": op.Type}
		if owner := op.Owner(); owner != p.RemoteAddr() {
			h.log.WithFields(fields).WithField("owner", owner).Warn("dropping op for another owner")
			return
		}
		h.log.WithFields(fields).Debug("received op")
		if h.OnOp != nil {
			h.OnOp(op, p)
		}
		h.Broadcast(op, p)
	})
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.log.WithError(err).WithField("peer", p.RemoteAddr()).Debug("peer read ended")
	}
}

// ListenAndServe serves the hub on port until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle(WSPath, h)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.log.WithField("port", port).Info("host server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "listen on port %d", port)
	}
	return nil
}
