package heartbeat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewServiceDefaultInterval(t *testing.T) {
	svc := NewService(Config{})
	if svc.interval != defaultInterval {
		t.Errorf("expected default interval %v, got %v", defaultInterval, svc.interval)
	}
	if svc := NewService(Config{Interval: time.Minute}); svc.interval != time.Minute {
		t.Errorf("expected custom interval, got %v", svc.interval)
	}
}

func TestBeatCarriesStatus(t *testing.T) {
	var got string
	svc := NewService(Config{
		Interval: time.Hour,
		Status:   func() string { return "State: waiting, cycle 3" },
		OnBeat:   func(message string) { got = message },
	})

	svc.TriggerNow()

	if got != "Still running. State: waiting, cycle 3" {
		t.Errorf("unexpected beat %q", got)
	}
}

func TestEmptyStatusSkips(t *testing.T) {
	called := false
	svc := NewService(Config{
		Status: func() string { return "" },
		OnBeat: func(message string) { called = true },
	})

	svc.tick()

	if called {
		t.Error("onBeat should not be called without a status")
	}
}

func TestNilCallbacks(t *testing.T) {
	svc := NewService(Config{Status: func() string { return "ok" }})
	svc.TriggerNow() // must not panic
}

func TestStartAndStop(t *testing.T) {
	var beats atomic.Int32
	svc := NewService(Config{
		Interval: 10 * time.Millisecond,
		Status:   func() string { return "ok" },
		OnBeat:   func(string) { beats.Add(1) },
	})

	svc.Start(context.Background())
	svc.Start(context.Background()) // idempotent

	deadline := time.Now().Add(2 * time.Second)
	for beats.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if beats.Load() == 0 {
		t.Fatal("expected at least one beat")
	}

	svc.Stop()
	svc.Stop() // idempotent
	if svc.running {
		t.Error("expected service stopped")
	}
}

func TestContextCancellationStopsService(t *testing.T) {
	var beats atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService(Config{
		Interval: 10 * time.Millisecond,
		Status:   func() string { return "ok" },
		OnBeat:   func(string) { beats.Add(1) },
	})
	svc.Start(ctx)
	cancel()

	time.Sleep(50 * time.Millisecond)
	settled := beats.Load()
	time.Sleep(50 * time.Millisecond)
	if beats.Load() != settled {
		t.Error("beats continued after context cancellation")
	}
}
