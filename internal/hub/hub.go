package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/duotris/duotris-backend/internal/room"
)

// ErrNotFound is surfaced to a joiner whose code matches no live room;
// retired rooms free their codes, so a finished match's code looks the same
// as one that never existed.
var ErrNotFound = errors.New("room not found")

const DefaultTurnLimit = 15 * time.Second

type Msg interface{ isHubMsg() }

// CreateRoom allocates a room under a fresh code (room-code matchmaking).
// Reply is nil only if code generation failed.
type CreateRoom struct {
	Reply chan *room.Room
}

// JoinRoom resolves a code, case-insensitively. Reply is nil when no live
// room holds it; fullness and terminal-state rejection come from the room.
type JoinRoom struct {
	Code  string
	Reply chan *room.Room
}

// QuickMatch hands back a quick-match room still waiting for its second
// participant, else creates one.
type QuickMatch struct {
	Reply chan *room.Room
}

// RemoveRoom deletes the entry; idempotent. Rooms post it themselves via
// their retire callback when they terminate.
type RemoveRoom struct{ Code string }

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (JoinRoom) isHubMsg()    {}
func (QuickMatch) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type entry struct {
	rm *room.Room
	// seats counts participants the hub has routed to the room, so two
	// quick-matchers racing each other never get the same waiting room.
	seats int
	// room-code rooms are never handed to quick-matchers; their second
	// seat belongs to whoever was told the code.
	private bool
}

type Hub struct {
	inbox     chan Msg
	rooms     map[string]*entry
	log       *zap.Logger
	turnLimit time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
}

type Config struct {
	TurnLimit time.Duration
	Log       *zap.Logger
}

func New(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if cfg.TurnLimit <= 0 {
		cfg.TurnLimit = DefaultTurnLimit
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	h := &Hub{
		inbox:     make(chan Msg, 64),
		rooms:     make(map[string]*entry),
		log:       cfg.Log,
		turnLimit: cfg.TurnLimit,
		ctx:       ctx,
		cancel:    cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				code, err := h.newCode()
				if err != nil {
					h.log.Error("code generation failed", zap.Error(err))
					msg.Reply <- nil
					break
				}
				// seats stays 0: the creator joins through the room like
				// anyone else, and private rooms never consult it.
				e := h.spawn(code, true, 0)
				msg.Reply <- e.rm

			case JoinRoom:
				e := h.rooms[normalize(msg.Code)]
				if e == nil {
					msg.Reply <- nil
					break
				}
				e.seats++
				msg.Reply <- e.rm

			case QuickMatch:
				if e := h.waitingRoom(); e != nil {
					e.seats++
					msg.Reply <- e.rm
					break
				}
				code, err := h.newCode()
				if err != nil {
					h.log.Error("code generation failed", zap.Error(err))
					msg.Reply <- nil
					break
				}
				e := h.spawn(code, false, 1)
				msg.Reply <- e.rm

			case RemoveRoom:
				delete(h.rooms, normalize(msg.Code))

			case ShutdownHub:
				for _, e := range h.rooms {
					e.rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// waitingRoom finds any quick-match room with a free seat.
func (h *Hub) waitingRoom() *entry {
	for _, e := range h.rooms {
		if !e.private && e.seats < 2 {
			return e
		}
	}
	return nil
}

func (h *Hub) spawn(code string, private bool, seats int) *entry {
	rm := room.New(h.ctx, room.Config{
		Code:      code,
		Seed:      mrand.Uint32(),
		TurnLimit: h.turnLimit,
		Log:       h.log.Named("room").With(zap.String("code", code)),
		Retire: func() {
			select {
			case h.inbox <- RemoveRoom{Code: code}:
			case <-h.ctx.Done():
			}
		},
	})

	e := &entry{rm: rm, seats: seats, private: private}
	h.rooms[code] = e
	h.log.Info("room created", zap.String("code", code), zap.Bool("private", private))
	return e
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// newCode allocates a short human-typeable code, re-rolling on collision
// with a live room.
func (h *Hub) newCode() (string, error) {
	for {
		code := make([]byte, codeLength)
		for i := range code {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			if err != nil {
				return "", err
			}
			code[i] = codeCharset[n.Int64()]
		}
		if _, taken := h.rooms[string(code)]; !taken {
			return string(code), nil
		}
		h.log.Debug("code collision, regenerating")
	}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
