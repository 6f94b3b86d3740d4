package event

import (
	"context"
	"fmt"
)

// Recorder persists session events.
type Recorder interface {
	Record(ctx context.Context, evt Event) error
}

// Writer is the storage side of a Recorder.
type Writer interface {
	Write(ctx context.Context, evt Event) error
}

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// StoreRecorder writes events through a Writer and, once the write has
// succeeded, publishes them.
type StoreRecorder struct {
	store Writer
	bus   Publisher
}

// NewStoreRecorder creates a recorder backed by store.
func NewStoreRecorder(store Writer) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *StoreRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

func (r *StoreRecorder) Record(ctx context.Context, evt Event) error {
	if err := r.store.Write(ctx, evt); err != nil {
		return fmt.Errorf("recording %s: %w", evt.EventType, err)
	}
	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}
