package app

import (
	"context"

	"github.com/cosketch/server/internal/domain"
	"github.com/cosketch/server/internal/session"
	"github.com/rs/zerolog/log"
)

// Orchestrator owns the join/leave lifecycle: it is the only code that
// moves a connection between Unbound and Bound and the only code that
// creates or removes rooms. Event-at-a-time serialization is the caller's
// job (the ws controller holds the event lock across mutation and relay).
type Orchestrator struct {
	Registry *Registry
	Rooms    *session.Store
}

func NewOrchestrator(store *session.Store) *Orchestrator {
	return &Orchestrator{Registry: NewRegistry(), Rooms: store}
}

func (o *Orchestrator) Connect(sid SessionID, conn Conn, cancel context.CancelFunc) {
	o.Registry.Bind(sid, conn, cancel)
}

// Departure describes a completed leave, so the caller can notify the
// remaining members.
type Departure struct {
	Room domain.RoomID
	Name domain.DisplayName
}

// Join authenticates against the room password (the room is created with
// the caller's password when absent), adds the member and returns the
// snapshot taken in the same step. A connection that is already bound
// leaves its current room first; the returned Departure is non-nil in that
// case even when it joined the same room again.
func (o *Orchestrator) Join(sid SessionID, roomID domain.RoomID, name domain.DisplayName, password string) (session.Snapshot, *Departure, error) {
	if _, ok := o.Registry.Conn(sid); !ok {
		return session.Snapshot{}, nil, ErrUnknownSession
	}

	// Auth before any mutation: a failed join must not leave the previous
	// room and must not create anything.
	if room, ok := o.Rooms.Get(roomID); ok && !room.CheckPassword(password) {
		log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("join rejected: wrong password")
		return session.Snapshot{}, nil, ErrWrongPassword
	}

	dep := o.Leave(sid)

	room := o.Rooms.GetOrCreate(roomID, password)
	room.AddMember(name)
	o.Registry.SetRoom(sid, roomID, name)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("name", string(name)).Msg("joined room")

	return room.Snapshot(), dep, nil
}

// Leave removes the member and deletes the room once empty. It is a no-op
// for Unbound connections.
func (o *Orchestrator) Leave(sid SessionID) *Departure {
	roomID, name, ok := o.Registry.Binding(sid)
	if !ok {
		return nil
	}

	if room, ok := o.Rooms.Get(roomID); ok {
		room.RemoveMember(name)
		if room.MemberCount() == 0 {
			o.Rooms.Remove(roomID)
		}
	}
	o.Registry.ClearRoom(sid)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("name", string(name)).Msg("left room")
	return &Departure{Room: roomID, Name: name}
}

// Disconnect performs exactly the same cleanup as an explicit leave and
// then forgets the connection. No orphaned membership survives an
// ungraceful exit.
func (o *Orchestrator) Disconnect(sid SessionID) *Departure {
	dep := o.Leave(sid)
	o.Registry.Unbind(sid)
	return dep
}

// RoomOf returns the sender's room for event routing; edit events from an
// Unbound connection are dropped by the caller.
func (o *Orchestrator) RoomOf(sid SessionID) (*session.Room, domain.DisplayName, bool) {
	roomID, name, ok := o.Registry.Binding(sid)
	if !ok {
		return nil, "", false
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, "", false
	}
	return room, name, true
}

func (o *Orchestrator) Peers(roomID domain.RoomID) []Peer {
	return o.Registry.PeersOfRoom(roomID)
}

func (o *Orchestrator) ConnectionCount() int { return o.Registry.Count() }

func (o *Orchestrator) RoomCount() int { return o.Rooms.Count() }
