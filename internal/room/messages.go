package room

import (
	"encoding/json"
	"errors"

	"github.com/duotris/duotris-backend/internal/board"
	"github.com/duotris/duotris-backend/internal/types"
)

var ErrRoomFull = errors.New("room is full")
var ErrGameEnded = errors.New("game already ended")

type Msg interface{ isRoomMsg() }

// Join registers a participant and its outbox. The reply carries the
// assigned slot or a matchmaking error; on success the room owns the outbox
// and closes it at termination.
type Join struct {
	ClientID string
	Outbox   chan types.ServerMessage
	Reply    chan JoinReply
}

type JoinReply struct {
	PlayerIndex int
	Err         error
}

// Leave is a disconnect. From a registered participant it terminates the
// room; there is no grace period and no reconnection.
type Leave struct{ ClientID string }

// PieceMove is an opaque live-cursor update, relayed verbatim to the other
// participant.
type PieceMove struct {
	ClientID string
	Move     json.RawMessage
}

// PiecePlaced carries the client's full board snapshot after its piece
// locked. Only the participant in the active slot is heard.
type PiecePlaced struct {
	ClientID string
	Board    board.Board
}

// GetState reflects internal state without data races; test use only.
type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// timerFired is posted back into the inbox by the countdown; gen makes
// stale fires inert.
type timerFired struct{ gen int }

func (Join) isRoomMsg()        {}
func (Leave) isRoomMsg()       {}
func (PieceMove) isRoomMsg()   {}
func (PiecePlaced) isRoomMsg() {}
func (GetState) isRoomMsg()    {}
func (Shutdown) isRoomMsg()    {}
func (timerFired) isRoomMsg()  {}

type View struct {
	Players     []string
	NumClients  int
	CurrentTurn int
	Scores      [2]int
	Board       board.Board
	Started     bool
	GameOver    bool
}
