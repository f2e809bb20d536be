package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventAnalysisSaved       EventType = "analysis_saved"
	EventAnalysisDeleted     EventType = "analysis_deleted"
	EventExplorationStarted  EventType = "exploration_started"
	EventConsequenceReady    EventType = "consequence_ready"
	EventExplorationFinished EventType = "exploration_finished"
	EventExplorationCanceled EventType = "exploration_canceled"
	EventComparisonReady     EventType = "comparison_ready"
	EventDocumentReady       EventType = "document_ready"
	EventImageReady          EventType = "image_ready"
	EventError               EventType = "error"

	// EventAny subscribes to every event type. Used by the websocket
	// layer to mirror all activity to connected clients.
	EventAny EventType = "*"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus that the websocket layer and
// any in-process listeners consume.
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
