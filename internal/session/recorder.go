package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/coopco/dodgem/internal/bump"
)

// Recorder turns engine events into session history. It starts a session
// on session_started and saves after every cycle and on fatal errors.
type Recorder struct {
	manager *Manager
	mu      sync.Mutex
	current *Session
}

func NewRecorder(m *Manager) *Recorder {
	return &Recorder{manager: m}
}

// Current returns the session being recorded, or nil before the first
// session_started event.
func (r *Recorder) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Recorder) Emit(e bump.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Kind == bump.EventSessionStarted {
		r.current = r.manager.Create(SessionMeta{
			Identity:        e.Identity,
			Target:          e.Target.String(),
			IntervalMinutes: e.Interval.Minutes(),
		})
		r.save()
		return
	}
	if r.current == nil {
		return
	}

	switch e.Kind {
	case bump.EventBumpFinished:
		if e.Outcome == nil {
			return
		}
		r.current.Append(Record{
			Kind:      KindOutcome,
			Time:      stamp(e.Time),
			Cycle:     e.Cycle,
			Listing:   e.Outcome.Listing.ID,
			Status:    e.Outcome.Status.String(),
			ElapsedMs: e.Outcome.Elapsed.Milliseconds(),
			Reason:    e.Outcome.Reason,
		})
	case bump.EventCycleCompleted:
		r.current.Append(Record{
			Kind:      KindCycle,
			Time:      stamp(e.Time),
			Cycle:     e.Cycle,
			Total:     e.Total,
			Succeeded: e.Succeeded,
			Failed:    e.Failed,
			NextRun:   stamp(e.NextRun),
		})
		r.save()
	case bump.EventCycleFailed, bump.EventFatal:
		kind := KindCycle
		if e.Kind == bump.EventFatal {
			kind = KindFatal
		}
		rec := Record{Kind: kind, Time: stamp(e.Time), Cycle: e.Cycle, NextRun: stamp(e.NextRun)}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		r.current.Append(rec)
		r.save()
	}
}

func (r *Recorder) save() {
	if err := r.manager.Save(r.current); err != nil {
		slog.Warn("session: failed to save history", "id", r.current.Meta.ID, "error", err)
	}
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
