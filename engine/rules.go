package engine

import (
	"context"

	"scorekeeper/core"
)

// DefaultRuleEngine emits new_best events for improved scores.
func DefaultRuleEngine() RuleEngine {
	return NewRuleEngine(core.NewBestRule{})
}

// NewRuleEngine evaluates rules in order and concatenates their output.
func NewRuleEngine(rules ...core.Rule) RuleEngine {
	return &simpleRuleEngine{rules: rules}
}

type simpleRuleEngine struct{ rules []core.Rule }

func (s *simpleRuleEngine) Evaluate(ctx context.Context, trigger core.Event) []core.Event {
	var out []core.Event
	for _, r := range s.rules {
		out = append(out, r.Evaluate(ctx, trigger)...)
	}
	return out
}
