// Package collab is the WebSocket adapter for the collaboration channel:
// it binds connections to rooms and fans mutation events out to the rest of
// the room.
package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cosketch/server/internal/app"
	"github.com/cosketch/server/internal/config"
	"github.com/cosketch/server/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller handles the collab WebSocket endpoint. Inbound events are
// processed one at a time under mu, which is what makes room mutation plus
// relay atomic with respect to every other event, including joins.
type Controller struct {
	orch    *app.Orchestrator
	cfg     *config.Config
	limiter *EventLimiter

	mu sync.Mutex
}

func NewController(orch *app.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		orch:    orch,
		cfg:     cfg,
		limiter: NewEventLimiter(cfg.EventLimit, cfg.EventWindow),
	}
}

// HandleCollab upgrades the request and starts the connection pumps. Every
// connection gets its own session id; the cookie client token only ties log
// lines of the same browser together.
func (ctl *Controller) HandleCollab(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Msg("ws upgrade")
		return
	}

	sid := app.SessionID(uuid.NewString())
	conn := newWSConn(ws, ctl.cfg.SendBuffer)

	connCtx, cancel := context.WithCancel(ctx)
	ctl.orch.Connect(sid, conn, cancel)
	log.Info().Str("module", "collab").Str("sid", string(sid)).Str("client", token).Msg("new collab connection")

	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, sid, conn)
}

func (ctl *Controller) sendJSON(conn app.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Msg("sendJSON marshal")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "collab").Msg("send dropped")
	}
}

func (ctl *Controller) sendJoinError(conn app.Conn, reason string) {
	ctl.sendJSON(conn, struct {
		Type   EventType `json:"type"`
		Reason string    `json:"reason"`
	}{EventSessionJoinError, reason})
}

// broadcastRoom delivers a frame to every bound connection of the room,
// sender included.
func (ctl *Controller) broadcastRoom(roomID domain.RoomID, frame []byte) {
	for _, peer := range ctl.orch.Peers(roomID) {
		if err := peer.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "collab").Str("sid", string(peer.SID)).Msg("broadcast dropped")
		}
	}
}

// broadcastOthers delivers a frame to the room minus the sender.
func (ctl *Controller) broadcastOthers(roomID domain.RoomID, from app.SessionID, frame []byte) {
	for _, peer := range ctl.orch.Peers(roomID) {
		if peer.SID == from {
			continue
		}
		if err := peer.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "collab").Str("sid", string(peer.SID)).Msg("broadcast dropped")
		}
	}
}

func (ctl *Controller) marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Msg("marshal")
		return nil
	}
	return b
}
