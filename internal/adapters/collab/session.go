package collab

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/cosketch/server/internal/app"
	"github.com/cosketch/server/internal/domain"
	"github.com/cosketch/server/internal/session"
)

type userJoinedEvent struct {
	Type        EventType          `json:"type"`
	DisplayName domain.DisplayName `json:"displayName"`
}

type userLeftEvent struct {
	Type        EventType          `json:"type"`
	DisplayName domain.DisplayName `json:"displayName"`
}

func (ctl *Controller) handleJoin(sid app.SessionID, conn app.Conn, data []byte) {
	var p struct {
		RoomID      domain.RoomID      `json:"roomId"`
		DisplayName domain.DisplayName `json:"displayName"`
		Password    string             `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad join payload")
		ctl.sendJoinError(conn, "bad payload")
		return
	}
	if p.RoomID == "" || len(p.RoomID) > domain.MaxRoomIDLen {
		ctl.sendJoinError(conn, "invalid room id")
		return
	}
	if err := domain.ValidateDisplayName(p.DisplayName); err != nil {
		ctl.sendJoinError(conn, err.Error())
		return
	}

	snap, dep, err := ctl.orch.Join(sid, p.RoomID, p.DisplayName, p.Password)
	if err != nil {
		ctl.sendJoinError(conn, err.Error())
		return
	}

	// A connection that re-joins while bound has implicitly left its old
	// room; tell that room before announcing the new membership.
	if dep != nil {
		ctl.broadcastOthers(dep.Room, sid, ctl.marshal(userLeftEvent{EventUserLeft, dep.Name}))
	}

	ctl.sendJSON(conn, struct {
		Type     EventType        `json:"type"`
		RoomID   domain.RoomID    `json:"roomId"`
		Snapshot session.Snapshot `json:"snapshot"`
	}{EventSessionJoined, p.RoomID, snap})

	ctl.broadcastRoom(p.RoomID, ctl.marshal(userJoinedEvent{EventUserJoined, p.DisplayName}))
}

func (ctl *Controller) handleLeave(sid app.SessionID) {
	dep := ctl.orch.Leave(sid)
	if dep == nil {
		log.Debug().Str("module", "collab").Str("sid", string(sid)).Msg("leave while unbound dropped")
		return
	}
	ctl.broadcastOthers(dep.Room, sid, ctl.marshal(userLeftEvent{EventUserLeft, dep.Name}))
}
