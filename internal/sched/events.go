package sched

import "tabclean/internal/pipeline"

// EventType distinguishes progress reports from the three terminal states.
type EventType uint8

const (
	EventProgress EventType = iota
	EventCompleted
	EventFailed
	EventCancelled
)

func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event is one of the terminal states.
func (t EventType) Terminal() bool { return t != EventProgress }

// Event is one entry in a run's event stream.
//
// Per task, events arrive in order: zero or more EventProgress with
// non-decreasing Percent, then exactly one terminal event. Events for
// different tasks carry no ordering guarantee relative to each other.
type Event struct {
	TaskID int64
	Type   EventType

	// Percent is set on EventProgress, in [0,100].
	Percent int

	// OutputPath and Fingerprint are set on EventCompleted.
	OutputPath  string
	Fingerprint string

	// Kind and Message are set on EventFailed.
	Kind    pipeline.ErrKind
	Message string
}
