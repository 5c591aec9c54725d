package analytics

import (
	"context"

	"scorekeeper/core"
)

// BridgeHook bridges an event source to multiple hooks.
type BridgeHook struct{ hooks []Hook }

func NewBridge(hooks ...Hook) *BridgeHook { return &BridgeHook{hooks: hooks} }

func (b *BridgeHook) OnEvent(ctx context.Context, e core.Event) {
	for _, h := range b.hooks {
		h.OnEvent(ctx, e)
	}
}

// Subscriber is the subset of engine.EventBus the hooks attach to.
type Subscriber interface {
	SubscribeAll(handler func(context.Context, core.Event)) func()
}

// Attach feeds every event published on bus to hooks and returns the unsubscribe func.
func Attach(bus Subscriber, hooks ...Hook) func() {
	return bus.SubscribeAll(NewBridge(hooks...).OnEvent)
}
