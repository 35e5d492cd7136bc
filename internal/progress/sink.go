package progress

import "context"

// Sink consumes batches of events. Consume may be called many times; Close
// is called once when the Hub shuts down.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes single events.
type Emitter interface {
	Emit(evt Event)
}

// Discard is an Emitter that drops everything.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(Event) {}
