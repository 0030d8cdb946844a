package engine

// Event names published by the engine.
const (
	EventInitStart       = "init_start"
	EventInitReady       = "init_ready"
	EventInitFailed      = "init_failed"
	EventGenerationStart = "generation_start"
	EventGenerationDone  = "generation_done"
	EventCancelRequested = "cancel_requested"
	EventShutdownStart   = "shutdown_start"
	EventShutdownDone    = "shutdown_done"
)

// Event represents an engine lifecycle event.
// Minimal and stable: name + model name and optional fields via key/values.
type Event struct {
	Name      string
	Model     string
	RequestID string
	Fields    map[string]any
}

// EventPublisher receives events from the engine. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
