package hub

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duotris/duotris-backend/internal/room"
	"github.com/duotris/duotris-backend/internal/types"
)

func create(t *testing.T, h *Hub) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- CreateRoom{Reply: reply}
	rm := <-reply
	require.NotNil(t, rm)
	return rm
}

func lookup(h *Hub, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- JoinRoom{Code: code, Reply: reply}
	return <-reply
}

func quickMatch(t *testing.T, h *Hub) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- QuickMatch{Reply: reply}
	rm := <-reply
	require.NotNil(t, rm)
	return rm
}

func joinRoom(t *testing.T, rm *room.Room, id string) chan types.ServerMessage {
	t.Helper()
	out := make(chan types.ServerMessage, 8)
	reply := make(chan room.JoinReply, 1)
	rm.Inbox() <- room.Join{ClientID: id, Outbox: out, Reply: reply}
	select {
	case res := <-reply:
		require.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatalf("timed out joining room")
	}
	msg := <-out
	require.Equal(t, types.EvtJoined, msg.Type)
	return out
}

func TestHub_CreateThenJoinByCode(t *testing.T) {
	h := New(context.Background(), Config{})

	rm := create(t, h)
	code := rm.Code()
	require.Len(t, code, codeLength)
	for _, c := range code {
		require.Contains(t, codeCharset, string(c))
	}

	require.Same(t, rm, lookup(h, code))
	require.Same(t, rm, lookup(h, strings.ToLower(code)), "codes are case-insensitive")
}

func TestHub_JoinUnknownCode(t *testing.T) {
	h := New(context.Background(), Config{})
	require.Nil(t, lookup(h, "NOSUCH"))
}

func TestHub_CodesAreUnique(t *testing.T) {
	h := New(context.Background(), Config{})
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code := create(t, h).Code()
		require.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
}

func TestHub_QuickMatchPairsTwoThenCreatesFresh(t *testing.T) {
	h := New(context.Background(), Config{})

	r1 := quickMatch(t, h)
	r2 := quickMatch(t, h)
	require.Same(t, r1, r2, "second quick-matcher fills the waiting room")

	r3 := quickMatch(t, h)
	require.NotSame(t, r1, r3, "a full room is not offered again")
}

func TestHub_QuickMatchNeverOffersPrivateRooms(t *testing.T) {
	h := New(context.Background(), Config{})

	private := create(t, h)
	matched := quickMatch(t, h)
	require.NotSame(t, private, matched)
}

func TestHub_RemoveRoomIsIdempotent(t *testing.T) {
	h := New(context.Background(), Config{})

	rm := create(t, h)
	code := rm.Code()

	h.Inbox() <- RemoveRoom{Code: code}
	h.Inbox() <- RemoveRoom{Code: code}
	require.Nil(t, lookup(h, code))
}

func TestHub_AbandonedRoomLeavesDirectory(t *testing.T) {
	h := New(context.Background(), Config{TurnLimit: time.Minute})

	rm := create(t, h)
	code := rm.Code()

	out1 := joinRoom(t, rm, "p1")
	out2 := joinRoom(t, rm, "p2")

	// drain gameStart
	<-out1
	<-out2

	rm.Inbox() <- room.Leave{ClientID: "p1"}

	msg := <-out2
	require.Equal(t, types.EvtOpponentLeft, msg.Type)

	// the retire callback lands in the hub inbox; joining by the old code
	// must eventually come back empty
	require.Eventually(t, func() bool {
		return lookup(h, code) == nil
	}, time.Second, 10*time.Millisecond)
}
