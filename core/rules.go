package core

import "context"

// Rule determines whether a trigger event should emit derived events.
type Rule interface {
	Evaluate(ctx context.Context, trigger Event) []Event
}

// NewBestRule emits new_best when a recorded score beats the previous partition best.
// Only completed plays qualify.
type NewBestRule struct{}

func (NewBestRule) Evaluate(_ context.Context, trigger Event) []Event {
	if trigger.Type != EventScoreRecorded {
		return nil
	}
	if done, ok := trigger.Metadata["completed"].(bool); ok && !done {
		return nil
	}
	if trigger.Previous != nil && trigger.Score >= *trigger.Previous {
		return nil
	}
	return []Event{NewBest(trigger.Partition(), trigger.RecordID, trigger.Score, trigger.Previous)}
}
