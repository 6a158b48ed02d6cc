package bump

import "time"

// EventKind names a progress event emitted by the engine.
type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventStateChanged   EventKind = "state_changed"
	EventAuthStarted    EventKind = "auth_started"
	EventAuthSucceeded  EventKind = "auth_succeeded"
	EventAuthFailed     EventKind = "auth_failed"
	EventCycleStarted   EventKind = "cycle_started"
	EventListingsFound  EventKind = "listings_found"
	EventBumpStarted    EventKind = "bump_started"
	EventBumpFinished   EventKind = "bump_finished"
	EventCycleCompleted EventKind = "cycle_completed"
	EventCycleFailed    EventKind = "cycle_failed"
	EventWaiting        EventKind = "waiting"
	EventFatal          EventKind = "fatal"
)

// Event is one structured progress notification. Fields not relevant to a
// kind are left zero. Events never carry the secret credential.
type Event struct {
	Kind     EventKind
	Time     time.Time
	Cycle    int
	State    State
	Target   Target
	Interval time.Duration
	Identity string

	// Per-listing fields. Index is 1-based within the selected targets.
	Listing Listing
	Index   int
	Total   int
	Outcome *Outcome

	// Count is the number of discovered listings for EventListingsFound.
	Count     int
	Succeeded int
	Failed    int
	NextRun   time.Time
	Err       error
}

// ProgressSink receives events in emission order. Emit must not block for long;
// the engine calls it inline between driver steps.
type ProgressSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans out to every sink in order.
type MultiSink []ProgressSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(Event) {}
