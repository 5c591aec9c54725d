package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"scorekeeper/core"
)

func scoreEvent(g core.GameType, d core.Difficulty, score float64) core.Event {
	return core.NewScoreRecorded(core.Record{ID: "r1", GameType: g, Difficulty: d, Score: score, Completed: true}, nil)
}

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1, Filter{})

	h.Broadcast(context.Background(), scoreEvent(core.GameReaction, core.DifficultyDefault, 210))

	received := <-ch
	if received.Game != core.GameReaction || received.Type != core.EventScoreRecorded {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
}

func TestHubFilters(t *testing.T) {
	h := NewHub()
	_, puzzles := h.Subscribe(4, Filter{Game: core.GameNumberPuzzle})
	_, small := h.Subscribe(4, Filter{Game: core.GameNumberPuzzle, Difficulty: "3x3"})

	ctx := context.Background()
	h.Broadcast(ctx, scoreEvent(core.GameNumberPuzzle, "3x3", 40))
	h.Broadcast(ctx, scoreEvent(core.GameNumberPuzzle, "5x5", 90))
	h.Broadcast(ctx, scoreEvent(core.GameMouse, core.DifficultyDefault, 12))
	h.Publish(ctx, core.NewGamesReset(3))

	if got := len(puzzles); got != 3 {
		t.Fatalf("game filter received %d events, want 3", got)
	}
	if got := len(small); got != 2 {
		t.Fatalf("partition filter received %d events, want 2", got)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(1, Filter{})
	ctx := context.Background()
	h.Broadcast(ctx, scoreEvent(core.GameMouse, core.DifficultyDefault, 1))
	h.Broadcast(ctx, scoreEvent(core.GameMouse, core.DifficultyDefault, 2))
	if h.Dropped() != 1 {
		t.Fatalf("dropped = %d", h.Dropped())
	}
	if ev := <-ch; ev.Score != 1 {
		t.Fatalf("kept the wrong event: %+v", ev)
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewLegacyMigrated(core.Partition{Game: core.GameStopwatch, Difficulty: core.DifficultyDefault}, "record_stopwatch", 1.5)
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Metadata["legacyKey"] != "record_stopwatch" || out.Score != 1.5 {
		t.Fatalf("unexpected event: %+v", out)
	}
}
