package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/types"
)

func TestBus_DispatchesToAllSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := New(8, nil)

	var (
		mu   sync.Mutex
		seen []string
	)
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, evt event.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name+":"+evt.SessionID)
			return nil
		})
	}
	bus.Subscribe("a", record("a"))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.Event) error { return errors.New("boom") }))
	bus.Subscribe("b", record("b"))
	bus.Subscribe("log", NewLogConsumer(nil))
	bus.Subscribe("metrics", NewMetricsConsumer())
	bus.Start(ctx)

	bus.Publish(ctx, event.NewConfigCompleted("s1", types.PlotConfig{PlotType: types.PlotDensity1D, IndexType: "depmap_model"}))
	bus.Publish(ctx, event.NewSessionClosed("s2", "idle"))
	bus.Stop()

	assert.Equal(t, []string{"a:s1", "b:s1", "a:s2", "b:s2"}, seen)
}

func TestBus_DropsWhenFull(t *testing.T) {
	ctx := context.Background()
	bus := New(1, nil)

	var n int
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.Event) error { n++; return nil }))

	// not started: the second publish finds the buffer full
	bus.Publish(ctx, event.NewSessionClosed("s1", "idle"))
	bus.Publish(ctx, event.NewSessionClosed("s2", "idle"))

	bus.Start(ctx)
	bus.Stop()
	assert.Equal(t, 1, n)
}

func TestBus_PublishAfterStop(t *testing.T) {
	ctx := context.Background()
	bus := New(4, nil)
	var n int
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.Event) error { n++; return nil }))
	bus.Start(ctx)
	bus.Stop()

	assert.NotPanics(t, func() { bus.Publish(ctx, event.NewSessionClosed("s1", "idle")) })
	bus.Stop()
	assert.Equal(t, 0, n)
}
