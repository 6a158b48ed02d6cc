package channels

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/bus"
)

// mockChannel is a test double for Channel.
type mockChannel struct {
	name    string
	mu      sync.Mutex
	sent    []bus.OutboundMessage
	started bool
}

func (m *mockChannel) Name() string { return m.name }
func (m *mockChannel) Start(_ context.Context) error {
	m.started = true
	return nil
}
func (m *mockChannel) Stop() error { return nil }
func (m *mockChannel) Send(msg bus.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}
func (m *mockChannel) IsAllowed(_ string) bool { return true }

func (m *mockChannel) messages() []bus.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bus.OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// newTestManager registers mock under name and returns a manager using it.
func newTestManager(t *testing.T, name string, level NotifyLevel, status StatusFunc) (*Manager, *mockChannel, *bus.MessageBus) {
	t.Helper()
	mock := &mockChannel{name: name}
	Register(name, func(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
		return mock, nil
	})
	msgBus := bus.NewMessageBus(16)
	mgr := NewManager(msgBus, level, status)
	if err := mgr.AddChannel(name, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	return mgr, mock, msgBus
}

// dispatchAll runs the bus until everything published so far is delivered,
// then flushes the manager's send queues.
func dispatchAll(t *testing.T, mgr *Manager, msgBus *bus.MessageBus) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		msgBus.Dispatch(context.Background())
		close(done)
	}()
	msgBus.Close()
	<-done
	if err := mgr.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}

func TestManagerAddChannel(t *testing.T) {
	mgr, _, _ := newTestManager(t, "test-channel-add", NotifyAll, nil)
	if n := len(mgr.snapshot()); n != 1 {
		t.Fatalf("expected 1 channel, got %d", n)
	}
}

func TestAddChannelUnknown(t *testing.T) {
	mgr := NewManager(bus.NewMessageBus(4), NotifyAll, nil)
	if err := mgr.AddChannel("no-such-channel-xyz", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown channel name")
	}
}

func TestStartAllAndStopAll(t *testing.T) {
	mgr, mock, _ := newTestManager(t, "test-start-stop", NotifyAll, nil)
	if err := mgr.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if !mock.started {
		t.Error("expected channel to be started")
	}
	if err := mgr.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}

func TestOutboundDispatchRoutesByChannel(t *testing.T) {
	mgr, mock, msgBus := newTestManager(t, "test-bus-dispatch", NotifyAll, nil)

	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "other", Content: "not mine"})
	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "test-bus-dispatch", Content: "hello"})
	dispatchAll(t, mgr, msgBus)

	sent := mock.messages()
	if len(sent) != 1 || sent[0].Content != "hello" {
		t.Fatalf("unexpected messages %+v", sent)
	}
}

func TestBroadcast(t *testing.T) {
	mgr, mock, msgBus := newTestManager(t, "test-broadcast", NotifyAll, nil)

	mgr.Broadcast("Still running.", bus.TypeReport)
	dispatchAll(t, mgr, msgBus)

	sent := mock.messages()
	if len(sent) != 1 || sent[0].Content != "Still running." || sent[0].Type != bus.TypeReport {
		t.Fatalf("unexpected messages %+v", sent)
	}
}

func TestEventNotifications(t *testing.T) {
	next := time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC)
	events := []bump.Event{
		{Kind: bump.EventBumpFinished},
		{Kind: bump.EventCycleCompleted, Cycle: 1, Total: 3, Succeeded: 3, NextRun: next},
		{Kind: bump.EventCycleCompleted, Cycle: 2, Total: 3, Succeeded: 2, Failed: 1, NextRun: next},
		{Kind: bump.EventCycleFailed, Cycle: 3, Err: errors.New("index timeout"), NextRun: next},
		{Kind: bump.EventFatal, Err: errors.New("context canceled")},
	}

	tests := []struct {
		name  string
		level NotifyLevel
		want  []string
	}{
		{"all", NotifyAll, []string{"Cycle 1: bumped 3/3", "Cycle 2: bumped 2/3 trade(s), 1 failed", "index timeout", "stopped"}},
		{"errors", NotifyErrors, []string{"Cycle 2", "index timeout", "stopped"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mgr, mock, msgBus := newTestManager(t, "test-notify-"+tc.name, tc.level, nil)
			for _, e := range events {
				msgBus.Emit(e)
			}
			dispatchAll(t, mgr, msgBus)

			sent := mock.messages()
			if len(sent) != len(tc.want) {
				t.Fatalf("got %d messages, want %d: %+v", len(sent), len(tc.want), sent)
			}
			for i, w := range tc.want {
				if !strings.Contains(sent[i].Content, w) {
					t.Errorf("message %d = %q, want it to contain %q", i, sent[i].Content, w)
				}
			}
			if sent[len(sent)-1].Type != bus.TypeAlert {
				t.Errorf("fatal should be an alert, got %q", sent[len(sent)-1].Type)
			}
		})
	}
}

// slowChannel blocks every Send until release is closed.
type slowChannel struct {
	mockChannel
	release chan struct{}
}

func (s *slowChannel) Send(msg bus.OutboundMessage) error {
	<-s.release
	return s.mockChannel.Send(msg)
}

func TestSlowChannelDoesNotBlockDispatch(t *testing.T) {
	slow := &slowChannel{mockChannel: mockChannel{name: "test-slow"}, release: make(chan struct{})}
	Register(slow.name, func(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
		return slow, nil
	})
	msgBus := bus.NewMessageBus(16)
	mgr := NewManager(msgBus, NotifyAll, nil)
	if err := mgr.AddChannel(slow.name, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	seen := make(chan bump.Event, 1)
	msgBus.SubscribeEvents(bump.EventWaiting, func(e bump.Event) { seen <- e })

	dispatched := make(chan struct{})
	go func() {
		msgBus.Dispatch(context.Background())
		close(dispatched)
	}()

	mgr.Broadcast("first", bus.TypeReport)
	mgr.Broadcast("second", bus.TypeReport)
	msgBus.Emit(bump.Event{Kind: bump.EventWaiting, Cycle: 1})

	select {
	case e := <-seen:
		if e.Cycle != 1 {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event delivery waited on a blocked Send")
	}
	if n := len(slow.messages()); n != 0 {
		t.Fatalf("expected no completed sends yet, got %d", n)
	}

	close(slow.release)
	msgBus.Close()
	<-dispatched
	if err := mgr.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	sent := slow.messages()
	if len(sent) != 2 || sent[0].Content != "first" || sent[1].Content != "second" {
		t.Errorf("expected queued messages in order after release, got %+v", sent)
	}
}

func TestAddChannelAfterStopAll(t *testing.T) {
	mgr, _, _ := newTestManager(t, "test-add-after-stop", NotifyAll, nil)
	if err := mgr.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if err := mgr.AddChannel("test-add-after-stop", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error adding a channel to a stopped manager")
	}
}

func TestServeCommandsRepliesWithStatus(t *testing.T) {
	status := func() string { return "waiting, next run at 12:15:00" }
	mgr, mock, msgBus := newTestManager(t, "test-status", NotifyAll, status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go msgBus.Dispatch(ctx)
	go mgr.ServeCommands(ctx)

	msgBus.PublishInbound(bus.InboundMessage{Channel: "test-status", ChatID: "c1", Content: " /Status "})
	msgBus.PublishInbound(bus.InboundMessage{Channel: "test-status", ChatID: "c1", Content: "hello"})

	deadline := time.After(time.Second)
	for len(mock.messages()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timeout: got %d replies", len(mock.messages()))
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	sent := mock.messages()
	if sent[0].Content != status() || sent[0].ChatID != "c1" || sent[0].Type != bus.TypeReply {
		t.Errorf("unexpected status reply %+v", sent[0])
	}
	if !strings.Contains(sent[1].Content, "status") {
		t.Errorf("expected hint reply, got %q", sent[1].Content)
	}
}

func TestParseNotifyLevel(t *testing.T) {
	for in, want := range map[string]NotifyLevel{"": NotifyAll, "all": NotifyAll, "errors": NotifyErrors} {
		got, err := ParseNotifyLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseNotifyLevel(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseNotifyLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
