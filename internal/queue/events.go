package queue

import "time"

// EventType names a step in a job's life.
type EventType string

// Lifecycle events.
const (
	EventEnqueued EventType = "enqueued"
	EventStarted  EventType = "started"
	EventFinished EventType = "finished"
	EventFailed   EventType = "failed"
	EventCleared  EventType = "cleared"
)

// Event describes a queue transition. Job is nil for EventCleared.
type Event struct {
	Type    EventType     `json:"type"`
	Job     *Job          `json:"job,omitempty"`
	Pending int           `json:"pending"`
	Dropped int           `json:"dropped,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
	Time    time.Time     `json:"time"`
}

// Observer receives queue events. OnEvent is called synchronously from the
// goroutine that caused the transition and must not block.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }
