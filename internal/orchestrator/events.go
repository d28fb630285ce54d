package orchestrator

import "time"

// EventType classifies one event on the notification stream.
type EventType int

const (
	// EventPhase announces a phase transition.
	EventPhase EventType = iota
	// EventWarning announces a degraded-but-continuing condition.
	EventWarning
)

// String returns the stream name of the event type.
func (t EventType) String() string {
	switch t {
	case EventPhase:
		return "phase"
	case EventWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Event is one notification to the presentation layer. Log lines and
// progress travel through the sinks, not the event stream.
type Event struct {
	Type    EventType
	Phase   Phase
	Message string
	Time    time.Time
}

// emit sends e without ever blocking the build. A full or absent
// channel drops the event; the session journal remains the durable
// record of phase history.
func emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	default:
	}
}
