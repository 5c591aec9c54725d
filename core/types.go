package core

import (
	"errors"
	"fmt"
	"strings"
)

// GameType identifies which game produced a record, e.g. "number_puzzle".
type GameType string

// Difficulty identifies a variant within a game, e.g. "3x3" or "default".
type Difficulty string

const (
	GameNumberPuzzle GameType = "number_puzzle"
	GameImagePuzzle  GameType = "image_puzzle"
	GameStopwatch    GameType = "stopwatch"
	GameMouse        GameType = "mouse"
	GameReaction     GameType = "reaction"

	DifficultyDefault Difficulty = "default"
)

// Storage key prefixes. The layout is shared with the browser build, so it must not change.
const (
	HistoryKeyPrefix = "gameHistory_"
	BestKeyPrefix    = "bestScores_"
	LegacyKeyPrefix  = "record_"
	ActivityKey      = "gameStats"
	ReactionBestsKey = "reaction_bests"
)

// Partition is the (game, difficulty) bucket that owns a history list and a best-score index.
type Partition struct {
	Game       GameType   `json:"gameType"`
	Difficulty Difficulty `json:"difficulty"`
}

// NewPartition validates and trims both identifiers.
// Difficulty may not contain '_' so that storage keys can be split back into partitions.
func NewPartition(game GameType, difficulty Difficulty) (Partition, error) {
	g := strings.TrimSpace(string(game))
	d := strings.TrimSpace(string(difficulty))
	if g == "" {
		return Partition{}, fmt.Errorf("%w: empty game type", ErrInvalidPartition)
	}
	if d == "" {
		return Partition{}, fmt.Errorf("%w: empty difficulty", ErrInvalidPartition)
	}
	if err := validateIdent(g, true); err != nil {
		return Partition{}, fmt.Errorf("%w: game type %q: %v", ErrInvalidPartition, g, err)
	}
	if err := validateIdent(d, false); err != nil {
		return Partition{}, fmt.Errorf("%w: difficulty %q: %v", ErrInvalidPartition, d, err)
	}
	return Partition{Game: GameType(g), Difficulty: Difficulty(d)}, nil
}

func validateIdent(s string, allowUnderscore bool) error {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '.' {
			continue
		}
		if r == '_' && allowUnderscore {
			continue
		}
		return errors.New("invalid character")
	}
	return nil
}

// Key is the cache key of the partition: "{game}_{difficulty}".
func (p Partition) Key() string { return string(p.Game) + "_" + string(p.Difficulty) }

// HistoryKey is where the newest-first record list is persisted.
func (p Partition) HistoryKey() string { return HistoryKeyPrefix + p.Key() }

// BestKey is where the ascending top-N best-score list is persisted.
func (p Partition) BestKey() string { return BestKeyPrefix + p.Key() }

func (p Partition) String() string { return p.Key() }

// LegacyKey is the pre-structured, difficulty-agnostic scalar best score of a game.
func (g GameType) LegacyKey() string { return LegacyKeyPrefix + string(g) }

// ParsePartitionKey splits "{prefix}{game}_{difficulty}" back into a partition.
func ParsePartitionKey(prefix, key string) (Partition, bool) {
	if !strings.HasPrefix(key, prefix) {
		return Partition{}, false
	}
	rest := key[len(prefix):]
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 || i == len(rest)-1 {
		return Partition{}, false
	}
	p, err := NewPartition(GameType(rest[:i]), Difficulty(rest[i+1:]))
	if err != nil {
		return Partition{}, false
	}
	return p, true
}

// IsLegacyBestKey reports whether key is one of the assorted per-game scalar keys
// written by older game builds ("{game}_best_{variant}", "reaction_bests", "record_{game}").
func IsLegacyBestKey(key string) bool {
	if key == ReactionBestsKey {
		return true
	}
	if strings.HasPrefix(key, HistoryKeyPrefix) || strings.HasPrefix(key, BestKeyPrefix) {
		return false
	}
	if strings.HasPrefix(key, LegacyKeyPrefix) {
		return true
	}
	i := strings.Index(key, "_best_")
	return i > 0
}
