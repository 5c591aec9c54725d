package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"scorekeeper/core"
)

// DispatchMode selects whether Publish runs handlers inline or on worker goroutines.
type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

type subscription struct {
	id  int64
	typ core.EventType
	fn  func(context.Context, core.Event)
}

// EventBus provides thread-safe pub/sub with sync and async dispatch.
// Handlers registered with SubscribeAll receive every event type.
type EventBus struct {
	mode         DispatchMode
	mu           sync.RWMutex
	subs         map[core.EventType]map[int64]subscription
	all          map[int64]subscription
	nextID       int64
	asyncQueue   chan core.Event
	asyncWorkers int
	dropped      atomic.Int64
	draining     chan struct{}
	closeOnce    sync.Once
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// drainTimeout bounds how long Close waits for queued async events.
const drainTimeout = 50 * time.Millisecond

func NewEventBus(mode DispatchMode) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		mode:         mode,
		subs:         make(map[core.EventType]map[int64]subscription),
		all:          make(map[int64]subscription),
		asyncQueue:   make(chan core.Event, 2048),
		asyncWorkers: 4,
		draining:     make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
	if mode == DispatchAsync {
		eb.startWorkers()
	}
	return eb
}

func (e *EventBus) startWorkers() {
	for i := 0; i < e.asyncWorkers; i++ {
		e.wg.Add(1)
		go e.work()
	}
}

// work dispatches queued events until Close; on Close it empties the queue
// and exits, or stops early once the drain window is cancelled.
func (e *EventBus) work() {
	defer e.wg.Done()
	for {
		select {
		case ev := <-e.asyncQueue:
			e.dispatchSync(e.ctx, ev)
		case <-e.draining:
			for {
				select {
				case <-e.ctx.Done():
					return
				case ev := <-e.asyncQueue:
					e.dispatchSync(e.ctx, ev)
				default:
					return
				}
			}
		case <-e.ctx.Done():
			return
		}
	}
}

// Close stops accepting async events and waits up to drainTimeout for the
// queued ones to be handled. Handlers still running after that see a
// cancelled context. Close is safe to call more than once.
func (e *EventBus) Close() {
	e.closeOnce.Do(func() {
		close(e.draining)
		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()
		timer := time.NewTimer(drainTimeout)
		defer timer.Stop()
		select {
		case <-done:
			e.cancel()
		case <-timer.C:
			e.cancel()
			<-done
		}
	})
}

// Dropped reports how many async events were discarded because the queue was
// full or the bus was already closed.
func (e *EventBus) Dropped() int64 { return e.dropped.Load() }

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, typ: typ, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// SubscribeAll registers a handler for every event type. Returns unsubscribe func.
func (e *EventBus) SubscribeAll(handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.all[id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.all, id)
	}
}

// Publish sends an event to subscribers.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode == DispatchAsync {
		select {
		case <-e.draining:
			e.dropped.Add(1)
			return
		default:
		}
		select {
		case e.asyncQueue <- ev:
		default:
			e.dropped.Add(1)
		}
		return
	}
	e.dispatchSync(ctx, ev)
}

func (e *EventBus) dispatchSync(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	subs := e.subs[ev.Type]
	// copy to avoid holding lock during callbacks
	handlers := make([]func(context.Context, core.Event), 0, len(subs)+len(e.all))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	for _, s := range e.all {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
