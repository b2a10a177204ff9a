// Package session tracks which users currently have live websocket
// channels and fans payloads out to all of them. Bindings are volatile:
// a restart drops everything and clients re-register on reconnect; the
// notification store stays the durable record.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoRecipient is returned by Deliver when the user has no live channel.
// The caller decides what "deferred" means; the router never buffers.
var ErrNoRecipient = errors.New("no live recipient")

// Channel is a single live transport bound to a user. Send must not block;
// it reports false when the channel cannot accept the message.
type Channel interface {
	Send(msg []byte) bool
}

type Router struct {
	mu      sync.RWMutex
	clients map[int64]map[Channel]struct{}
	log     *slog.Logger
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{
		clients: make(map[int64]map[Channel]struct{}),
		log:     log,
	}
}

// Register binds ch to userID. Registering the same channel twice is a no-op.
func (r *Router) Register(userID int64, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.clients[userID]
	if !ok {
		set = make(map[Channel]struct{})
		r.clients[userID] = set
	}
	set[ch] = struct{}{}
}

// Unregister removes the binding; no-op if absent.
func (r *Router) Unregister(userID int64, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.clients[userID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(r.clients, userID)
		}
	}
}

// Connected reports whether the user has at least one live channel.
func (r *Router) Connected(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients[userID]) > 0
}

// Deliver sends v (as JSON) to every channel bound to userID. A full
// per-channel buffer drops the message for that channel only; the store
// is authoritative for anything a client misses.
func (r *Router) Deliver(ctx context.Context, userID int64, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.mu.RLock()
	set := r.clients[userID]
	targets := make([]Channel, 0, len(set))
	for ch := range set {
		targets = append(targets, ch)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNoRecipient
	}
	for _, ch := range targets {
		if !ch.Send(b) {
			r.log.Warn("dropping message for slow channel", "user_id", userID)
		}
	}
	return nil
}
