package collab

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cosketch/server/internal/app"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "collab").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "collab").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid app.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "collab").Str("sid", string(sid)).Msg("readPump closing")
		ctl.dropConnection(sid)
		c.Close()
	}()

	// The pong deadline outlives one ping interval so a single lost ping
	// does not kill the connection.
	pongWait := ctl.cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleEvent(sid, c, data)
		}
	}
}

// dropConnection runs the implicit-disconnect cleanup: same effect as an
// explicit leaveSession, then the connection is forgotten.
func (ctl *Controller) dropConnection(sid app.SessionID) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	dep := ctl.orch.Disconnect(sid)
	ctl.limiter.Forget(sid)
	if dep == nil {
		return
	}
	ctl.broadcastOthers(dep.Room, sid, ctl.marshal(userLeftEvent{EventUserLeft, dep.Name}))
}

// handleEvent is the single dispatch point. The lock makes each event run
// to completion before the next one is looked at, for the whole process.
func (ctl *Controller) handleEvent(sid app.SessionID, conn app.Conn, data []byte) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	var env struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("sid", string(sid)).Msg("bad json")
		return
	}

	switch env.Type {
	case EventJoinSession:
		ctl.handleJoin(sid, conn, data)
	case EventLeaveSession:
		ctl.handleLeave(sid)
	default:
		ctl.handleRoomEvent(sid, env.Type, data)
	}
}

// handleRoomEvent routes edit events. Events from an Unbound connection
// are dropped silently; the design intentionally surfaces no error here.
func (ctl *Controller) handleRoomEvent(sid app.SessionID, typ EventType, data []byte) {
	room, name, ok := ctl.orch.RoomOf(sid)
	if !ok {
		log.Debug().Str("module", "collab").Str("sid", string(sid)).Str("type", string(typ)).Msg("unbound event dropped")
		return
	}
	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "collab").Str("sid", string(sid)).Str("type", string(typ)).Msg("rate limit exceeded, event dropped")
		return
	}

	switch typ {
	case EventDrawLine:
		ctl.handleDrawLine(sid, room, data)
	case EventDrawShape:
		ctl.handleDrawShape(sid, room, data)
	case EventUndoAction, EventRedoAction:
		// Pure signals: history lives client-side, the server just relays.
		ctl.broadcastOthers(room.ID, sid, data)
	case EventResetCanvas:
		ctl.handleResetCanvas(sid, room, data)
	case EventUpdateCode:
		ctl.handleUpdateCode(sid, room, data)
	case EventUpdateText:
		ctl.handleUpdateText(sid, room, data)
	case EventSendMessage:
		ctl.handleSendMessage(sid, room, name, data)
	case EventUserTyping:
		ctl.handleUserTyping(sid, room, name, data)
	default:
		log.Warn().Str("module", "collab").Str("type", string(typ)).Msg("unknown event")
	}
}
