// Package eventbus provides an in-process pub/sub bus for session events.
// Sessions publish after the snapshot write succeeds; subscribers process
// events asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matthewbaird/plotconfig/internal/event"
)

// Handler processes an event. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine,
// which serialises writes to SQLite-backed subscribers.
type Bus struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers []namedHandler
	stopped     bool
	events      chan event.Event
	done        chan struct{}
	stopOnce    sync.Once
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int, logger *slog.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		events: make(chan event.Event, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// or the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.logger.Warn("eventbus: stopped, dropping event",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.ID))
		return
	}
	select {
	case b.events <- evt:
	default:
		b.logger.Warn("eventbus: buffer full, dropping event",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.ID))
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				// Drain remaining events before exiting.
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		close(b.events)
		b.mu.Unlock()
	})
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.logger.Error("eventbus: handler failed",
				slog.String("handler", s.name),
				slog.String("event_type", evt.EventType),
				slog.String("error", err.Error()))
		}
	}
}
