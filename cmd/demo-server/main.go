package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"scorekeeper/api/httpapi"
	"scorekeeper/arcade"
	"scorekeeper/core"
	"scorekeeper/realtime"
)

// sample plays seeded at startup so the endpoints have something to show
var sample = []struct {
	game core.GameType
	diff core.Difficulty
	data core.ScoreData
}{
	{"reaction", "default", core.ScoreData{Score: 312, TimeSpent: 312, Completed: core.Bool(true)}},
	{"reaction", "default", core.ScoreData{Score: 268, TimeSpent: 268, Completed: core.Bool(true)}},
	{"puzzle", "easy", core.ScoreData{Score: 42, Moves: 42, TimeSpent: 61000, Completed: core.Bool(true)}},
	{"puzzle", "easy", core.ScoreData{Score: 57, Moves: 57, TimeSpent: 90500, Completed: core.Bool(false)}},
}

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx := context.Background()
	hub := realtime.NewHub()
	a := arcade.New(arcade.WithRealtime(hub))
	defer a.Close()

	for _, s := range sample {
		if _, err := a.Manager.RecordScore(ctx, s.game, s.diff, s.data); err != nil {
			slog.Error("seed play", "game", s.game, "difficulty", s.diff, "error", err)
		}
	}

	mux := httpapi.NewMux(a.Manager, hub, httpapi.Options{AllowCORSOrigin: "*"})

	slog.Info("starting demo server on :8080", "seeded", len(sample))

	if err := http.ListenAndServe(":8080", mux); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
