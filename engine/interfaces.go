package engine

import (
	"context"

	"scorekeeper/core"
)

// Storage abstracts the string key-value store that owns all durable history state.
// Get reports ok=false for a missing key; that is never an error.
// Set returns an error wrapping core.ErrStorageFull when the backend is out of capacity.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix; an empty prefix lists everything.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// RuleEngine evaluates rules and emits derived events.
type RuleEngine interface {
	Evaluate(ctx context.Context, trigger core.Event) []core.Event
}

// Publisher receives history events.
type Publisher interface {
	Publish(ctx context.Context, ev core.Event)
}
