package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/duotris/duotris-backend/internal/hub"
	"github.com/duotris/duotris-backend/internal/room"
)

// CreateRoom is the REST adapter for room-code matchmaking: it allocates a
// room and hands the code back; both participants then connect over /ws.
func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.CreateRoom{Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: rm.Code()})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
