package collab

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosketch/server/internal/app"
	"github.com/cosketch/server/internal/config"
	"github.com/cosketch/server/internal/session"
)

// fakeConn records everything the controller sends, without a socket.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) TrySend(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) all() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeConn) byType(t *testing.T, typ EventType) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, frame := range f.all() {
		m := decodeFrame(t, frame)
		if m["type"] == string(typ) {
			out = append(out, m)
		}
	}
	return out
}

func decodeFrame(t *testing.T, frame []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(frame, &m))
	return m
}

func newTestController() *Controller {
	cfg := config.Default()
	cfg.EventLimit = 0 // unlimited unless a test opts in
	return NewController(app.NewOrchestrator(session.NewStore()), cfg)
}

func connect(ctl *Controller, sid string) *fakeConn {
	fc := &fakeConn{}
	ctl.orch.Connect(app.SessionID(sid), fc, nil)
	return fc
}

func joinFrame(room, name, password string) []byte {
	return []byte(fmt.Sprintf(`{"type":"joinSession","roomId":%q,"displayName":%q,"password":%q}`, room, name, password))
}

func mustJoin(t *testing.T, ctl *Controller, sid string, fc *fakeConn, room, name, password string) {
	t.Helper()
	ctl.handleEvent(app.SessionID(sid), fc, joinFrame(room, name, password))
	require.Len(t, fc.byType(t, EventSessionJoined), 1, "join should succeed for %s", sid)
}

func TestJoinDeliversSnapshotAndAnnouncement(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")

	ctl.handleEvent("a", a, joinFrame("r1", "alice", "p"))

	joined := a.byType(t, EventSessionJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "r1", joined[0]["roomId"])
	snap := joined[0]["snapshot"].(map[string]any)
	assert.Equal(t, []any{"alice"}, snap["members"])
	assert.Empty(t, snap["drawings"])
	assert.Empty(t, snap["chat"])

	// The joiner hears its own membership notification.
	announced := a.byType(t, EventUserJoined)
	require.Len(t, announced, 1)
	assert.Equal(t, "alice", announced[0]["displayName"])
}

func TestJoinWrongPassword(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")

	ctl.handleEvent("b", b, joinFrame("r1", "bob", "wrong"))

	errs := b.byType(t, EventSessionJoinError)
	require.Len(t, errs, 1)
	assert.Equal(t, "incorrect password", errs[0]["reason"])
	assert.Empty(t, b.byType(t, EventSessionJoined))

	// No broadcast, no membership change.
	assert.Len(t, a.byType(t, EventUserJoined), 1, "only alice's own join")
	room, ok := ctl.orch.Rooms.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())

	// Retrying with the right password works.
	ctl.handleEvent("b", b, joinFrame("r1", "bob", "p"))
	joined := b.byType(t, EventSessionJoined)
	require.Len(t, joined, 1)
	snap := joined[0]["snapshot"].(map[string]any)
	assert.ElementsMatch(t, []any{"alice", "bob"}, snap["members"])
	assert.Len(t, a.byType(t, EventUserJoined), 2, "alice hears bob join")
}

func TestJoinInvalidDisplayName(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")

	ctl.handleEvent("a", a, joinFrame("r1", "", "p"))
	require.Len(t, a.byType(t, EventSessionJoinError), 1)
	assert.Equal(t, 0, ctl.orch.RoomCount(), "failed join must not create the room")

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'x'
	}
	ctl.handleEvent("a", a, joinFrame("r1", string(long), "p"))
	assert.Len(t, a.byType(t, EventSessionJoinError), 2)
}

func TestDrawLineRelaysToOthersOnly(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	raw := []byte(`{"type":"drawLine","tool":"draw","points":[0,0,10,10],"color":"#000"}`)
	before := len(a.all())
	ctl.handleEvent("a", a, raw)

	// B gets the identical frame; A gets nothing back.
	relayed := b.byType(t, EventDrawLine)
	require.Len(t, relayed, 1)
	frames := b.all()
	assert.Equal(t, raw, frames[len(frames)-1])
	assert.Len(t, a.all(), before)

	room, _ := ctl.orch.Rooms.Get("r1")
	require.Len(t, room.Snapshot().Drawings, 1)
	assert.Equal(t, []float64{0, 0, 10, 10}, room.Snapshot().Drawings[0].Points)
}

func TestSnapshotReplacesMissedRelays(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")

	ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"draw","points":[0,0,1,1],"color":"#000"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"erase","points":[2,2],"color":"white"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"drawShape","tool":"rectangle","start":{"x":0,"y":0},"end":{"x":5,"y":5},"color":"#f00"}`))

	c := connect(ctl, "c")
	mustJoin(t, ctl, "c", c, "r1", "carol", "p")

	joined := c.byType(t, EventSessionJoined)
	snap := joined[0]["snapshot"].(map[string]any)
	assert.Len(t, snap["drawings"], 2)
	assert.Len(t, snap["shapes"], 1)

	// The late joiner never sees those events a second time via relay.
	assert.Empty(t, c.byType(t, EventDrawLine))
	assert.Empty(t, c.byType(t, EventDrawShape))
}

func TestResetCanvasClearsAndRelays(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"draw","points":[0,0],"color":"#000"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"drawShape","tool":"circle","start":{"x":0,"y":0},"end":{"x":2,"y":2},"color":"#00f"}`))

	ctl.handleEvent("b", b, []byte(`{"type":"resetCanvas"}`))

	room, _ := ctl.orch.Rooms.Get("r1")
	snap := room.Snapshot()
	assert.Empty(t, snap.Drawings)
	assert.Empty(t, snap.Shapes)

	assert.Len(t, a.byType(t, EventResetCanvas), 1, "others receive the reset")
	assert.Empty(t, b.byType(t, EventResetCanvas), "never echoed to the sender")
}

func TestUndoRedoAreDumbRelays(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"draw","points":[0,0],"color":"#000"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"undoAction"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"redoAction"}`))

	assert.Len(t, b.byType(t, EventUndoAction), 1)
	assert.Len(t, b.byType(t, EventRedoAction), 1)

	// The server keeps no history: the stroke log is untouched.
	room, _ := ctl.orch.Rooms.Get("r1")
	assert.Len(t, room.Snapshot().Drawings, 1)
}

func TestUpdateCodeStoredAndRelayedToOthers(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("a", a, []byte(`{"type":"updateCode","code":"x := 1","language":"go"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"updateCode","code":"x := 2","language":"go"}`))

	assert.Len(t, b.byType(t, EventUpdateCode), 2)
	assert.Empty(t, a.byType(t, EventUpdateCode), "sender already has the change")

	room, _ := ctl.orch.Rooms.Get("r1")
	assert.Equal(t, "x := 2", room.Snapshot().Code.Code, "latest write wins")
}

func TestUpdateTextAccumulatesDeltas(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	raw := []byte(`{"type":"updateText","delta":{"ops":[{"insert":"hi"}]}}`)
	ctl.handleEvent("a", a, raw)

	relayed := b.byType(t, EventUpdateText)
	require.Len(t, relayed, 1)
	assert.Empty(t, a.byType(t, EventUpdateText))

	room, _ := ctl.orch.Rooms.Get("r1")
	text := room.Snapshot().Text
	require.Len(t, text, 1)
	assert.JSONEq(t, `{"ops":[{"insert":"hi"}]}`, string(text[0]))
}

func TestSendMessageReachesEveryoneOnce(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("a", a, []byte(`{"type":"sendMessage","body":"hello"}`))

	for name, fc := range map[string]*fakeConn{"a": a, "b": b} {
		msgs := fc.byType(t, EventNewMessage)
		require.Len(t, msgs, 1, "connection %s", name)
		assert.Equal(t, "alice", msgs[0]["author"])
		assert.Equal(t, "hello", msgs[0]["body"])
	}

	room, _ := ctl.orch.Rooms.Get("r1")
	chat := room.Snapshot().Chat
	require.Len(t, chat, 1)
	assert.Equal(t, "alice", string(chat[0].Author))
}

func TestTypingStatusToOthersWithSenderName(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("a", a, []byte(`{"type":"userTyping","isTyping":true}`))

	typing := b.byType(t, EventUserTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, "alice", typing[0]["displayName"])
	assert.Equal(t, true, typing[0]["isTyping"])
	assert.Empty(t, a.byType(t, EventUserTyping))
}

func TestUnboundEventsSilentlyDropped(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")

	ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"draw","points":[0,0],"color":"#000"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"sendMessage","body":"into the void"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"leaveSession"}`))

	assert.Empty(t, a.all(), "no error surfaces for out-of-band events")
	assert.Equal(t, 0, ctl.orch.RoomCount())
}

func TestMalformedFramesIgnored(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")

	ctl.handleEvent("a", a, []byte(`not json`))
	ctl.handleEvent("a", a, []byte(`{"type":"noSuchEvent"}`))

	room, ok := ctl.orch.Rooms.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestLeaveNotifiesRemainingAndDeletesEmptyRoom(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("b", b, []byte(`{"type":"leaveSession"}`))

	left := a.byType(t, EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "bob", left[0]["displayName"])
	assert.Empty(t, b.byType(t, EventUserLeft), "the leaver is not notified")
	assert.Equal(t, 1, ctl.orch.RoomCount())

	ctl.handleEvent("a", a, []byte(`{"type":"leaveSession"}`))
	assert.Equal(t, 0, ctl.orch.RoomCount())
}

func TestDisconnectBehavesLikeLeave(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	// A drops without a leaveSession.
	ctl.dropConnection("a")

	left := b.byType(t, EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "alice", left[0]["displayName"])

	ctl.dropConnection("b")
	assert.Equal(t, 0, ctl.orch.RoomCount())
	assert.Equal(t, 0, ctl.orch.ConnectionCount())
}

func TestRejoinAnnouncesDepartureToOldRoom(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	ctl.handleEvent("a", a, joinFrame("r2", "alice", "q"))

	left := b.byType(t, EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "alice", left[0]["displayName"])

	joined := a.byType(t, EventSessionJoined)
	require.Len(t, joined, 2)
	assert.Equal(t, "r2", joined[1]["roomId"])
}

func TestEventRateLimitDropsExcess(t *testing.T) {
	cfg := config.Default()
	cfg.EventLimit = 2
	ctl := NewController(app.NewOrchestrator(session.NewStore()), cfg)

	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r1", "bob", "p")

	for i := 0; i < 5; i++ {
		ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"draw","points":[0,0],"color":"#000"}`))
	}

	assert.Len(t, b.byType(t, EventDrawLine), 2, "excess events are dropped, not queued")
	room, _ := ctl.orch.Rooms.Get("r1")
	assert.Len(t, room.Snapshot().Drawings, 2)
}

func TestEventsIsolatedBetweenRooms(t *testing.T) {
	ctl := newTestController()
	a := connect(ctl, "a")
	b := connect(ctl, "b")
	mustJoin(t, ctl, "a", a, "r1", "alice", "p")
	mustJoin(t, ctl, "b", b, "r2", "bob", "q")

	ctl.handleEvent("a", a, []byte(`{"type":"drawLine","tool":"draw","points":[0,0],"color":"#000"}`))
	ctl.handleEvent("a", a, []byte(`{"type":"sendMessage","body":"r1 only"}`))

	assert.Empty(t, b.byType(t, EventDrawLine))
	assert.Empty(t, b.byType(t, EventNewMessage))
}
