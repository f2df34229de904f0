package event

import (
	"context"
	"sync"
	"time"

	"github.com/ims/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus implements EventBus with in-process pub/sub.
// Before Start and after Stop events are dispatched synchronously on the
// publisher's goroutine; in between they go through a buffered queue served
// by a single dispatcher goroutine, so publishers never wait on handlers.
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	handlerTimeout time.Duration

	mu      sync.RWMutex
	running bool
	queue   chan shared.DomainEvent
	done    chan struct{}
}

// NewInMemoryEventBus creates a new in-memory event bus.
// bufferSize bounds the dispatch queue; handlerTimeout bounds each handler
// invocation, zero meaning no limit.
func NewInMemoryEventBus(logger *zap.Logger, bufferSize int, handlerTimeout time.Duration) *InMemoryEventBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &InMemoryEventBus{
		registry:       NewHandlerRegistry(),
		logger:         logger,
		handlerTimeout: handlerTimeout,
		queue:          make(chan shared.DomainEvent, bufferSize),
	}
}

// Publish hands events to the dispatcher, falling back to synchronous
// dispatch when the bus is not running or the queue is full
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ev := range events {
		if !b.running {
			b.dispatch(ctx, ev)
			continue
		}
		select {
		case b.queue <- ev:
		default:
			b.logger.Warn("event queue full, dispatching inline",
				zap.String("event_type", ev.EventType()),
			)
			b.dispatch(ctx, ev)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start launches the dispatcher goroutine
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	b.running = true
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		for ev := range b.queue {
			b.dispatch(context.Background(), ev)
		}
	}()

	b.logger.Info("event bus started")
	return nil
}

// Stop drains the queue and stops the dispatcher
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.queue)
	done := b.done
	b.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.logger.Info("event bus stopped")
	return nil
}

// dispatch delivers one event to every matching handler
func (b *InMemoryEventBus) dispatch(ctx context.Context, ev shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(ev.EventType()) {
		if err := b.invoke(ctx, handler, ev); err != nil {
			// A failing handler must not block the others
			b.logger.Error("handler failed to process event",
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// invoke runs one handler under the configured timeout, recovering panics
func (b *InMemoryEventBus) invoke(ctx context.Context, handler shared.EventHandler, ev shared.DomainEvent) (err error) {
	if b.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.handlerTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", ev.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, ev)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
