package collab

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/cosketch/server/internal/app"
	"github.com/cosketch/server/internal/domain"
	"github.com/cosketch/server/internal/session"
)

func (ctl *Controller) handleUpdateCode(sid app.SessionID, room *session.Room, data []byte) {
	var code domain.CodeState
	if err := json.Unmarshal(data, &code); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad code payload")
		return
	}
	room.SetCode(code)
	ctl.broadcastOthers(room.ID, sid, data)
}

func (ctl *Controller) handleUpdateText(sid app.SessionID, room *session.Room, data []byte) {
	var p struct {
		Delta json.RawMessage `json:"delta"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad text payload")
		return
	}
	room.AppendText(p.Delta)
	ctl.broadcastOthers(room.ID, sid, data)
}
