package room

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/duotris/duotris-backend/internal/board"
	"github.com/duotris/duotris-backend/internal/piece"
	"github.com/duotris/duotris-backend/internal/types"
)

// Room is one match. All state below is owned by the room's goroutine and
// mutated only inside loop; the transport talks to it through the inbox.
type Room struct {
	code      string
	log       *zap.Logger
	inbox     chan Msg
	seq       *piece.Sequencer
	brd       board.Board
	players   []string // slot 0 = first joiner, slot 1 = second
	clients   map[string]chan types.ServerMessage
	current   int // active slot
	scores    [2]int
	started   bool
	over      bool
	turnLimit time.Duration
	timer     *time.Timer
	timerGen  int
	retire    func()
	ctx       context.Context
	cancel    context.CancelFunc
}

type Config struct {
	Code      string
	Seed      uint32
	TurnLimit time.Duration
	Log       *zap.Logger
	// Retire removes the room from the directory; called exactly once, on
	// termination.
	Retire func()
}

func New(parent context.Context, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)

	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	retire := cfg.Retire
	if retire == nil {
		retire = func() {}
	}

	r := &Room{
		code:      cfg.Code,
		log:       log,
		inbox:     make(chan Msg, 64),
		seq:       piece.NewSequencer(cfg.Seed),
		clients:   make(map[string]chan types.ServerMessage),
		turnLimit: cfg.TurnLimit,
		retire:    retire,
		ctx:       ctx,
		cancel:    cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Code() string { return r.code }

// Done is closed once the room has terminated. The transport selects on it
// alongside a Join reply so a connection racing against termination gets an
// answer instead of blocking on a dead inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case Leave:
				if r.handleLeave(msg) {
					return
				}

			case PieceMove:
				r.handleMove(msg)

			case PiecePlaced:
				if r.handlePlaced(msg) {
					return
				}

			case timerFired:
				r.handleTimer(msg)

			case GetState:
				players := slices.Clone(r.players)
				msg.Reply <- View{
					Players:     players,
					NumClients:  len(r.clients),
					CurrentTurn: r.current,
					Scores:      r.scores,
					Board:       r.brd,
					Started:     r.started,
					GameOver:    r.over,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	if r.over {
		msg.Reply <- JoinReply{Err: ErrGameEnded}
		return
	}
	if len(r.players) >= 2 {
		msg.Reply <- JoinReply{Err: ErrRoomFull}
		return
	}

	slot := len(r.players)
	r.players = append(r.players, msg.ClientID)
	r.clients[msg.ClientID] = msg.Outbox
	msg.Reply <- JoinReply{PlayerIndex: slot}

	// Acknowledge through the outbox so joined always precedes gameStart.
	r.send(msg.ClientID, msg.Outbox, types.ServerMessage{
		Type:        types.EvtJoined,
		PlayerIndex: types.Int(slot),
		RoomCode:    r.code,
	})

	r.log.Info("player joined", zap.Int("slot", slot))

	if len(r.players) == 2 {
		r.begin()
	}
}

// begin deals the first piece and opens slot 0's turn. currentTurn is not
// flipped here; the first joiner always moves first.
func (r *Room) begin() {
	r.started = true
	first := r.seq.Next()
	r.broadcast(r.turnMessage(types.EvtGameStart, first, nil))
	r.armTimer()
	r.log.Info("match started")
}

// handleLeave reports whether the room terminated.
func (r *Room) handleLeave(msg Leave) bool {
	// The room owns a joined outbox; close it here, since shutdown only
	// sees the clients still registered.
	if ch, ok := r.clients[msg.ClientID]; ok {
		close(ch)
		delete(r.clients, msg.ClientID)
	}

	if !slices.Contains(r.players, msg.ClientID) {
		return false
	}

	// A registered participant left: the match is abandoned.
	r.log.Info("player disconnected, abandoning room")
	r.broadcast(types.ServerMessage{Type: types.EvtOpponentLeft})
	r.retire()
	r.shutdown()
	return true
}

func (r *Room) handleMove(msg PieceMove) {
	if !slices.Contains(r.players, msg.ClientID) {
		return
	}
	for id, ch := range r.clients {
		if id == msg.ClientID {
			continue
		}
		r.send(id, ch, types.ServerMessage{Type: types.EvtOpponentPieceMove, Move: msg.Move})
	}
}

// handlePlaced reports whether the room terminated.
func (r *Room) handlePlaced(msg PiecePlaced) bool {
	if r.over || !r.started {
		return false
	}
	if r.players[r.current] != msg.ClientID {
		// Stale or misbehaving client; dropping it silently keeps the
		// opponent's match intact.
		r.log.Debug("ignoring placement out of turn")
		return false
	}

	r.cancelTimer()

	updated, cleared, over := board.Apply(msg.Board)
	r.brd = updated
	r.scores[r.current] += board.Score(cleared)

	if over {
		r.over = true
		b := r.brd
		r.broadcast(types.ServerMessage{
			Type:   types.EvtGameOver,
			Scores: []int{r.scores[0], r.scores[1]},
			Board:  &b,
		})
		r.log.Info("game over",
			zap.Int("score0", r.scores[0]),
			zap.Int("score1", r.scores[1]))
		r.retire()
		r.shutdown()
		return true
	}

	r.advanceTurn(cleared)
	return false
}

// advanceTurn flips the active slot, deals, and re-arms the countdown.
func (r *Room) advanceTurn(cleared int) {
	r.current = 1 - r.current
	next := r.seq.Next()
	r.broadcast(r.turnMessage(types.EvtTurnChanged, next, types.Int(cleared)))
	r.armTimer()
}

func (r *Room) turnMessage(evt string, current piece.Kind, cleared *int) types.ServerMessage {
	b := r.brd
	return types.ServerMessage{
		Type:           evt,
		CurrentTurn:    types.Int(r.current),
		ActivePlayerID: r.players[r.current],
		CurrentPiece:   current,
		PreviewPiece:   r.seq.Peek(),
		Board:          &b,
		Scores:         []int{r.scores[0], r.scores[1]},
		LinesCleared:   cleared,
		TurnTimeLimit:  r.turnLimit.Milliseconds(),
	}
}

func (r *Room) handleTimer(msg timerFired) {
	if msg.gen != r.timerGen || r.over || !r.started {
		return
	}
	// Advisory only: the client decides how to respond (an automatic hard
	// drop), the turn does not advance server-side.
	r.log.Info("turn timed out", zap.Int("slot", r.current))
	r.broadcast(types.ServerMessage{
		Type:        types.EvtTurnTimeout,
		PlayerIndex: types.Int(r.current),
	})
}

// armTimer replaces any outstanding countdown; exactly one is ever armed.
func (r *Room) armTimer() {
	r.cancelTimer()
	gen := r.timerGen
	r.timer = time.AfterFunc(r.turnLimit, func() {
		select {
		case r.inbox <- timerFired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) cancelTimer() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for id, ch := range r.clients {
		r.send(id, ch, msg)
	}
}

func (r *Room) send(id string, ch chan types.ServerMessage, msg types.ServerMessage) {
	select {
	case ch <- msg:
	default:
		// Client is slow/full - drop it.
		r.log.Warn("dropping slow client")
		close(ch)
		delete(r.clients, id)
	}
}

func (r *Room) shutdown() {
	r.cancelTimer()
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}
