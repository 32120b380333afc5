package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duotris/duotris-backend/internal/hub"
	"github.com/duotris/duotris-backend/internal/room"
	"github.com/duotris/duotris-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades a connection and bridges its JSON frames to room
// messages. The first meaningful frame picks the matchmaking adapter:
// createRoom / joinRoom run the room-code mode, joinGame the quick-match
// mode; both land in the same Room lifecycle.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			id:   uuid.NewString(),
			conn: conn,
			hub:  h,
			log:  log,
			out:  make(chan types.ServerMessage, 8),
		}
		c.run(r.Context())
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	hub  *hub.Hub
	log  *zap.Logger
	out  chan types.ServerMessage
	rm   *room.Room // nil until a join succeeded
}

func (c *client) run(ctx context.Context) {
	defer func() {
		if c.rm != nil {
			// disconnect: the room abandons the match and closes the outbox
			c.rm.Inbox() <- room.Leave{ClientID: c.id}
		} else {
			close(c.out)
		}
	}()

	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go c.writeLoop(writeCtx)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			// Clean closes and going-away are the normal end of a session;
			// anything else is worth a trace. Either way the deferred Leave
			// abandons the match.
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.log.Debug("connection read failed", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.log.Debug("dropping unparseable frame", zap.Error(err))
			continue
		}
		c.dispatch(ctx, cm)
	}
}

// writeLoop drains the outbox until the room (or run's defer) closes it.
func (c *client) writeLoop(ctx context.Context) {
	for msg := range c.out {
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		_ = c.conn.Write(wctx, websocket.MessageText, payload)
		cancel()
	}
	// outbox closed: the room terminated, nothing more will arrive
	c.conn.Close(websocket.StatusNormalClosure, "room closed")
}

func (c *client) dispatch(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.CmdCreateRoom:
		c.matchmake(ctx, func(reply chan *room.Room) hub.Msg {
			return hub.CreateRoom{Reply: reply}
		}, "could not create room")

	case types.CmdJoinRoom:
		c.matchmake(ctx, func(reply chan *room.Room) hub.Msg {
			return hub.JoinRoom{Code: cm.Code, Reply: reply}
		}, hub.ErrNotFound.Error())

	case types.CmdJoinGame:
		c.matchmake(ctx, func(reply chan *room.Room) hub.Msg {
			return hub.QuickMatch{Reply: reply}
		}, "could not create room")

	case types.CmdPieceMove:
		if c.rm == nil {
			return
		}
		c.rm.Inbox() <- room.PieceMove{ClientID: c.id, Move: cm.Move}

	case types.CmdPiecePlaced:
		if c.rm == nil || cm.Board == nil {
			return
		}
		c.rm.Inbox() <- room.PiecePlaced{ClientID: c.id, Board: *cm.Board}

	default:
		c.log.Debug("ignoring unknown event", zap.String("type", cm.Type))
	}
}

// matchmake resolves a room through the hub and joins it. A connection is in
// at most one room; repeat attempts are protocol violations and ignored.
func (c *client) matchmake(ctx context.Context, req func(chan *room.Room) hub.Msg, notFound string) {
	if c.rm != nil {
		return
	}

	reply := make(chan *room.Room, 1)
	c.hub.Inbox() <- req(reply)
	rm := <-reply
	if rm == nil {
		c.sendJoinError(ctx, notFound)
		return
	}
	c.join(ctx, rm)
}

func (c *client) join(ctx context.Context, rm *room.Room) {
	reply := make(chan room.JoinReply, 1)
	rm.Inbox() <- room.Join{ClientID: c.id, Outbox: c.out, Reply: reply}

	select {
	case res := <-reply:
		c.joined(ctx, rm, res)
	case <-rm.Done():
		// The room may have answered just before terminating; a reply
		// means the join landed and the outbox is room-owned.
		select {
		case res := <-reply:
			c.joined(ctx, rm, res)
		default:
			c.sendJoinError(ctx, room.ErrGameEnded.Error())
		}
	}
}

func (c *client) joined(ctx context.Context, rm *room.Room, res room.JoinReply) {
	if res.Err != nil {
		c.sendJoinError(ctx, res.Err.Error())
		return
	}
	c.rm = rm
	c.log.Info("joined room",
		zap.String("code", rm.Code()),
		zap.Int("slot", res.PlayerIndex))
}

// sendJoinError writes directly: it targets only this connection and the
// outbox may already belong to a room.
func (c *client) sendJoinError(ctx context.Context, reason string) {
	payload, _ := json.Marshal(types.ServerMessage{
		Type:   types.EvtJoinError,
		Reason: reason,
	})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = c.conn.Write(wctx, websocket.MessageText, payload)
}
