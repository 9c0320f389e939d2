package collab

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/cosketch/server/internal/app"
	"github.com/cosketch/server/internal/domain"
	"github.com/cosketch/server/internal/session"
)

func (ctl *Controller) handleSendMessage(sid app.SessionID, room *session.Room, author domain.DisplayName, data []byte) {
	var p struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad chat payload")
		return
	}

	msg := domain.ChatMessage{Author: author, Body: p.Body}
	room.AppendChat(msg)

	// Chat goes back to the sender too: everyone sees the same ordering.
	ctl.broadcastRoom(room.ID, ctl.marshal(struct {
		Type   EventType          `json:"type"`
		Author domain.DisplayName `json:"author"`
		Body   string             `json:"body"`
	}{EventNewMessage, msg.Author, msg.Body}))
}

func (ctl *Controller) handleUserTyping(sid app.SessionID, room *session.Room, name domain.DisplayName, data []byte) {
	var p struct {
		IsTyping bool `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad typing payload")
		return
	}

	ctl.broadcastOthers(room.ID, sid, ctl.marshal(struct {
		Type        EventType          `json:"type"`
		DisplayName domain.DisplayName `json:"displayName"`
		IsTyping    bool               `json:"isTyping"`
	}{EventUserTyping, name, p.IsTyping}))
}
