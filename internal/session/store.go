package session

import (
	"sync"

	"github.com/cosketch/server/internal/domain"
	"github.com/rs/zerolog/log"
)

// Store is the registry of live rooms. It is an injected dependency, not a
// process-wide singleton, so tests can run several independent stores.
// Rooms are created lazily on first reference and removed by the gateway
// once their last member leaves.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[domain.RoomID]*Room)}
}

// GetOrCreate returns the room, creating it with the caller's password when
// it does not exist yet. The password argument is ignored for existing
// rooms; auth is the gateway's job.
func (s *Store) GetOrCreate(id domain.RoomID, password string) *Room {
	s.mu.RLock()
	room, ok := s.rooms[id]
	s.mu.RUnlock()
	if ok {
		return room
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.rooms[id]; ok {
		return room
	}
	room = NewRoom(id, password)
	s.rooms[id] = room
	log.Info().Str("module", "session.store").Str("room", string(id)).Msg("room created")
	return room
}

func (s *Store) Get(id domain.RoomID) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *Store) Remove(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		delete(s.rooms, id)
		log.Info().Str("module", "session.store").Str("room", string(id)).Msg("room removed")
	}
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// RoomInfo is a read-only view for the ops API.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

func (s *Store) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, r := range s.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}
