package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/duotris/duotris-backend/internal/hub"
	"github.com/duotris/duotris-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log.Named("ws")))
	return r
}
