package app

import (
	"context"
	"sync"

	"github.com/cosketch/server/internal/domain"
	"github.com/rs/zerolog/log"
)

// entry is the per-connection state: the transport endpoint plus, while
// bound, the (room, display-name) pair. Room == "" means Unbound. Only the
// orchestrator transitions this.
type entry struct {
	Room   domain.RoomID
	Name   domain.DisplayName
	Conn   Conn
	Cancel context.CancelFunc
}

// Registry tracks every live connection and its binding.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*entry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionID]*entry)}
}

func (r *Registry) Bind(sid SessionID, conn Conn, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &entry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
}

// Unbind forgets the connection and cancels its context so both pumps die
// even when only one side of the transport failed.
func (r *Registry) Unbind(sid SessionID) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
}

// SetRoom transitions the connection to Bound.
func (r *Registry) SetRoom(sid SessionID, room domain.RoomID, name domain.DisplayName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Room = room
	e.Name = name
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Str("name", string(name)).Msg("bound to room")
	return true
}

// ClearRoom transitions the connection back to Unbound.
func (r *Registry) ClearRoom(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Room = ""
		e.Name = ""
	}
}

// Binding returns the bound room and name, or ok=false while Unbound.
func (r *Registry) Binding(sid SessionID) (domain.RoomID, domain.DisplayName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", "", false
	}
	return e.Room, e.Name, true
}

func (r *Registry) Conn(sid SessionID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Peer is a read-only view of one bound connection, used for fanout.
type Peer struct {
	SID  SessionID
	Name domain.DisplayName
	Conn Conn
}

func (r *Registry) PeersOfRoom(room domain.RoomID) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.Room == room {
			out = append(out, Peer{SID: sid, Name: e.Name, Conn: e.Conn})
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
