package session

import (
	"errors"
	"testing"
	"time"

	"github.com/coopco/dodgem/internal/bump"
)

func TestRecorderWritesHistory(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(NewManager(dir))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := bump.Listing{ID: "https://example.test/trade/1"}
	ok := bump.Outcome{Listing: listing, Status: bump.Success, Elapsed: 1500 * time.Millisecond}

	// Events before a session starts are ignored.
	rec.Emit(bump.Event{Kind: bump.EventCycleCompleted, Time: at})
	if rec.Current() != nil {
		t.Fatal("expected no session before session_started")
	}

	events := []bump.Event{
		{Kind: bump.EventSessionStarted, Time: at, Identity: "me@example.test", Target: bump.TargetAll, Interval: 15 * time.Minute},
		{Kind: bump.EventBumpStarted, Time: at, Cycle: 1, Listing: listing, Index: 1, Total: 1},
		{Kind: bump.EventBumpFinished, Time: at, Cycle: 1, Listing: listing, Index: 1, Total: 1, Outcome: &ok},
		{Kind: bump.EventCycleCompleted, Time: at, Cycle: 1, Total: 1, Succeeded: 1, NextRun: at.Add(15 * time.Minute)},
		{Kind: bump.EventCycleFailed, Time: at, Cycle: 2, Err: errors.New("index unreachable")},
	}
	for _, e := range events {
		rec.Emit(e)
	}

	s := rec.Current()
	if s == nil {
		t.Fatal("expected a session")
	}
	if s.Meta.Target != "all" || s.Meta.IntervalMinutes != 15 {
		t.Errorf("unexpected meta %+v", s.Meta)
	}

	stored := NewManager(dir).Get(s.Meta.ID)
	if stored == nil {
		t.Fatal("expected history saved to disk")
	}
	recs := stored.AllRecords()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(recs), recs)
	}
	if recs[0].Kind != KindOutcome || recs[0].Status != "success" || recs[0].ElapsedMs != 1500 {
		t.Errorf("unexpected outcome record %+v", recs[0])
	}
	if recs[1].Kind != KindCycle || recs[1].Succeeded != 1 || recs[1].NextRun != "2024-03-01T12:15:00Z" {
		t.Errorf("unexpected cycle record %+v", recs[1])
	}
	if recs[2].Error != "index unreachable" {
		t.Errorf("unexpected failed cycle record %+v", recs[2])
	}
}

func TestRecorderSavesOnFatal(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(NewManager(dir))
	rec.Emit(bump.Event{Kind: bump.EventSessionStarted, Target: bump.TargetOldest, Interval: time.Minute})
	rec.Emit(bump.Event{Kind: bump.EventFatal, Err: &bump.AuthError{Step: "submit", Identity: "me", Err: errors.New("x")}})

	stored := NewManager(dir).Get(rec.Current().Meta.ID)
	if stored == nil {
		t.Fatal("expected history saved to disk")
	}
	recs := stored.AllRecords()
	if len(recs) != 1 || recs[0].Kind != KindFatal || recs[0].Error == "" {
		t.Errorf("unexpected records %+v", recs)
	}
}
