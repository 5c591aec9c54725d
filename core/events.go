package core

import "time"

// EventType enumerates history events.
type EventType string

const (
	EventScoreRecorded     EventType = "score_recorded"
	EventNewBest           EventType = "new_best"
	EventRecordDeleted     EventType = "record_deleted"
	EventHistoryCleared    EventType = "history_cleared"
	EventBestScoresCleared EventType = "best_scores_cleared"
	EventLegacyMigrated    EventType = "legacy_migrated"
	EventGamesReset        EventType = "games_reset"
)

// Event represents an immutable history event.
type Event struct {
	Type       EventType      `json:"type"`
	Time       time.Time      `json:"time"`
	Game       GameType       `json:"gameType,omitempty"`
	Difficulty Difficulty     `json:"difficulty,omitempty"`
	RecordID   string         `json:"recordId,omitempty"`
	Score      float64        `json:"score,omitempty"`
	TimeSpent  int64          `json:"timeSpent,omitempty"`
	Previous   *float64       `json:"previous,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Partition returns the bucket the event refers to; zero for global events.
func (e Event) Partition() Partition {
	return Partition{Game: e.Game, Difficulty: e.Difficulty}
}

// NewScoreRecorded carries the partition best before the write in Previous (nil when there was none).
func NewScoreRecorded(rec Record, previous *float64) Event {
	return Event{
		Type:       EventScoreRecorded,
		Time:       rec.Date,
		Game:       rec.GameType,
		Difficulty: rec.Difficulty,
		RecordID:   rec.ID,
		Score:      rec.Score,
		TimeSpent:  rec.TimeSpent,
		Previous:   previous,
		Metadata:   map[string]any{"completed": rec.Completed},
	}
}

func NewBest(p Partition, recordID string, score float64, previous *float64) Event {
	return Event{Type: EventNewBest, Time: time.Now().UTC(), Game: p.Game, Difficulty: p.Difficulty, RecordID: recordID, Score: score, Previous: previous}
}

func NewRecordDeleted(p Partition, id string) Event {
	return Event{Type: EventRecordDeleted, Time: time.Now().UTC(), Game: p.Game, Difficulty: p.Difficulty, RecordID: id}
}

func NewHistoryCleared(p Partition) Event {
	return Event{Type: EventHistoryCleared, Time: time.Now().UTC(), Game: p.Game, Difficulty: p.Difficulty}
}

func NewBestScoresCleared(p Partition) Event {
	return Event{Type: EventBestScoresCleared, Time: time.Now().UTC(), Game: p.Game, Difficulty: p.Difficulty}
}

func NewLegacyMigrated(p Partition, legacyKey string, score float64) Event {
	return Event{
		Type: EventLegacyMigrated, Time: time.Now().UTC(), Game: p.Game, Difficulty: p.Difficulty,
		Score: score, Metadata: map[string]any{"legacyKey": legacyKey},
	}
}

func NewGamesReset(keysRemoved int) Event {
	return Event{Type: EventGamesReset, Time: time.Now().UTC(), Metadata: map[string]any{"keysRemoved": keysRemoved}}
}
