package types

import (
	"encoding/json"

	"github.com/duotris/duotris-backend/internal/board"
	"github.com/duotris/duotris-backend/internal/piece"
)

// Client -> Server
//
// createRoom:  {} -> joined{playerIndex:0, roomCode}
// joinRoom:    code: string
// joinGame:    {} (quick-match: join any waiting room, else create one)
// pieceMove:   move: opaque live-cursor payload, relayed to the opponent
// piecePlaced: board: full 20x10 snapshot after the piece locked client-side
type ClientMessage struct {
	Type  string          `json:"type"`
	Code  string          `json:"code,omitempty"`
	Board *board.Board    `json:"board,omitempty"`
	Move  json.RawMessage `json:"move,omitempty"`
}

// Client -> Server event types.
const (
	CmdCreateRoom  = "createRoom"
	CmdJoinRoom    = "joinRoom"
	CmdJoinGame    = "joinGame"
	CmdPieceMove   = "pieceMove"
	CmdPiecePlaced = "piecePlaced"
)

// Server -> Client event types.
const (
	EvtJoined            = "joined"
	EvtJoinError         = "joinError"
	EvtGameStart         = "gameStart"
	EvtTurnChanged       = "turnChanged"
	EvtTurnTimeout       = "turnTimeout"
	EvtGameOver          = "gameOver"
	EvtOpponentPieceMove = "opponentPieceMove"
	EvtOpponentLeft      = "opponentLeft"
)

// ServerMessage is the single outbound envelope; fields are populated per
// event type and omitted otherwise. Index fields are pointers so slot 0
// survives omitempty. RoomCode carries the room identifier for both
// matchmaking modes; quick-match clients expecting a separate roomId field
// should read it from here.
type ServerMessage struct {
	Type           string          `json:"type"`
	PlayerIndex    *int            `json:"playerIndex,omitempty"`
	RoomCode       string          `json:"roomCode,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	CurrentTurn    *int            `json:"currentTurn,omitempty"`
	ActivePlayerID string          `json:"activePlayerId,omitempty"`
	CurrentPiece   piece.Kind      `json:"currentPiece,omitempty"`
	PreviewPiece   piece.Kind      `json:"previewPiece,omitempty"`
	Board          *board.Board    `json:"board,omitempty"`
	Scores         []int           `json:"scores,omitempty"`
	LinesCleared   *int            `json:"linesCleared,omitempty"`
	TurnTimeLimit  int64           `json:"turnTimeLimit,omitempty"`
	Move           json.RawMessage `json:"move,omitempty"`
}

// Int returns a pointer for the optional numeric fields above.
func Int(v int) *int { return &v }
