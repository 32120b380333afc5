package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/duotris/duotris-backend/internal/hub"
	"github.com/duotris/duotris-backend/internal/httpapi"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	turnLimit := hub.DefaultTurnLimit
	if v := os.Getenv("TURN_TIME_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			log.Fatal("invalid TURN_TIME_MS", zap.String("value", v))
		}
		turnLimit = time.Duration(ms) * time.Millisecond
	}

	ctx := context.Background()
	h := hub.New(ctx, hub.Config{
		TurnLimit: turnLimit,
		Log:       log.Named("hub"),
	})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, log)

	log.Info("listening", zap.String("port", port), zap.Duration("turn_limit", turnLimit))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
