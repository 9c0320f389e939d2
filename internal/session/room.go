// Package session holds the in-memory state of active collaboration rooms.
package session

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/cosketch/server/internal/domain"
)

// Room is the shared mutable state of one collaboration session. The
// password is set by whichever connection first references the room id and
// never changes afterwards. Membership is a counted multiset so that two
// connections sharing a display name do not evict each other.
type Room struct {
	ID domain.RoomID

	mu       sync.RWMutex
	password string
	members  map[domain.DisplayName]int
	size     int
	drawings []domain.Line
	shapes   []domain.Shape
	code     domain.CodeState
	text     []json.RawMessage
	chat     []domain.ChatMessage
}

func NewRoom(id domain.RoomID, password string) *Room {
	return &Room{
		ID:       id,
		password: password,
		members:  make(map[domain.DisplayName]int),
	}
}

// CheckPassword reports whether the supplied password matches the one the
// room was created with.
func (r *Room) CheckPassword(password string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.password == password
}

func (r *Room) AddMember(name domain.DisplayName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[name]++
	r.size++
}

func (r *Room) RemoveMember(name domain.DisplayName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.members[name]
	if !ok {
		return
	}
	if n <= 1 {
		delete(r.members, name)
	} else {
		r.members[name] = n - 1
	}
	r.size--
}

// MemberCount counts bound connections, not distinct names.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// MemberNames returns the distinct display names, sorted.
func (r *Room) MemberNames() []domain.DisplayName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DisplayName, 0, len(r.members))
	for name := range r.members {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Room) AppendLine(line domain.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drawings = append(r.drawings, line)
}

func (r *Room) AppendShape(shape domain.Shape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shapes = append(r.shapes, shape)
}

// ResetCanvas drops both canvas logs. Code, text and chat are untouched.
func (r *Room) ResetCanvas() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drawings = nil
	r.shapes = nil
}

func (r *Room) SetCode(code domain.CodeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

// AppendText accumulates a rich-text delta. Deltas are opaque to the server;
// they are stored and replayed verbatim.
func (r *Room) AppendText(delta json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = append(r.text, delta)
}

func (r *Room) AppendChat(msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat = append(r.chat, msg)
}

// Snapshot is the full room state sent once to a newly joined connection.
type Snapshot struct {
	Members  []domain.DisplayName `json:"members"`
	Drawings []domain.Line        `json:"drawings"`
	Shapes   []domain.Shape       `json:"shapes"`
	Code     domain.CodeState     `json:"code"`
	Text     []json.RawMessage    `json:"text"`
	Chat     []domain.ChatMessage `json:"chat"`
}

// Snapshot copies the current room state so a late joiner can reconstruct
// everything without replaying relays.
func (r *Room) Snapshot() Snapshot {
	names := r.MemberNames()

	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		Members:  names,
		Drawings: make([]domain.Line, len(r.drawings)),
		Shapes:   make([]domain.Shape, len(r.shapes)),
		Code:     r.code,
		Text:     make([]json.RawMessage, len(r.text)),
		Chat:     make([]domain.ChatMessage, len(r.chat)),
	}
	copy(snap.Drawings, r.drawings)
	copy(snap.Shapes, r.shapes)
	copy(snap.Text, r.text)
	copy(snap.Chat, r.chat)
	return snap
}
