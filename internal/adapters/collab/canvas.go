package collab

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/cosketch/server/internal/app"
	"github.com/cosketch/server/internal/domain"
	"github.com/cosketch/server/internal/session"
)

func (ctl *Controller) handleDrawLine(sid app.SessionID, room *session.Room, data []byte) {
	var line domain.Line
	if err := json.Unmarshal(data, &line); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad line payload")
		return
	}
	room.AppendLine(line)
	ctl.broadcastOthers(room.ID, sid, data)
}

func (ctl *Controller) handleDrawShape(sid app.SessionID, room *session.Room, data []byte) {
	var shape domain.Shape
	if err := json.Unmarshal(data, &shape); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad shape payload")
		return
	}
	room.AppendShape(shape)
	ctl.broadcastOthers(room.ID, sid, data)
}

func (ctl *Controller) handleResetCanvas(sid app.SessionID, room *session.Room, data []byte) {
	room.ResetCanvas()
	log.Info().Str("module", "collab").Str("room", string(room.ID)).Msg("canvas reset")
	ctl.broadcastOthers(room.ID, sid, data)
}
